package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kmit-fdms/fdms/internal/models"
	"github.com/kmit-fdms/fdms/internal/utils"
)

const DefaultMaxUploadBytes int64 = 5 << 20

var allowedUploadTypes = map[string]struct{}{
	"application/pdf": {},
	"image/jpeg":      {},
	"image/png":       {},
}

// multipart field name -> document kind
var uploadFields = map[string]models.DocumentKind{
	"certificate":      models.DocGeneral,
	"tenthCertificate": models.DocTenth,
	"interCertificate": models.DocInter,
	"ugCertificate":    models.DocUG,
	"pgCertificate":    models.DocPG,
	"phdCertificate":   models.DocPhD,
	"panDoc":           models.DocPAN,
	"aadharDoc":        models.DocAadhar,
}

// formOverheadBytes is the room left in a multipart request for the profile
// JSON and part headers.
const formOverheadBytes int64 = 1 << 20

// MaxFormBytes bounds a multipart request that carries one file of at most
// maxUpload bytes for every upload field.
func MaxFormBytes(maxUpload int64) int64 {
	if maxUpload <= 0 || maxUpload > DefaultMaxUploadBytes {
		maxUpload = DefaultMaxUploadBytes
	}
	return int64(len(uploadFields))*maxUpload + formOverheadBytes
}

// IsUploadField reports whether field is one of the accepted multipart file fields.
func IsUploadField(field string) bool {
	_, ok := uploadFields[field]
	return ok
}

// Upload is one file received with a request, not yet validated.
type Upload struct {
	Field       string
	FileName    string
	Size        int64
	ContentType string // as declared by the client
	Body        io.Reader
}

type acceptedUpload struct {
	kind     models.DocumentKind
	fileName string
	size     int64
	mimeType string
	body     io.Reader
}

// inspectUploads applies the upload filter (PDF/JPEG/PNG, at most maxBytes) to
// every file. Nothing is stored unless all files pass.
func inspectUploads(op string, uploads []Upload, maxBytes int64) ([]acceptedUpload, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}

	seen := map[models.DocumentKind]struct{}{}
	out := make([]acceptedUpload, 0, len(uploads))
	for _, up := range uploads {
		kind, ok := uploadFields[up.Field]
		if !ok {
			return nil, utils.E(utils.CodeInvalidArgument, op, fmt.Sprintf("unexpected upload field %q", up.Field), nil)
		}
		if _, dup := seen[kind]; dup {
			return nil, utils.E(utils.CodeInvalidArgument, op, fmt.Sprintf("only one file allowed for %q", up.Field), nil)
		}
		seen[kind] = struct{}{}

		if up.Size <= 0 || up.Body == nil {
			return nil, utils.E(utils.CodeInvalidArgument, op, fmt.Sprintf("%s: empty file", up.Field), nil)
		}
		if up.Size > maxBytes {
			return nil, utils.E(utils.CodeInvalidArgument, op, fmt.Sprintf("%s: file too large (max %dMB)", up.Field, maxBytes>>20), nil)
		}

		head := make([]byte, 512)
		n, err := io.ReadFull(up.Body, head)
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
			return nil, utils.E(utils.CodeInvalidArgument, op, fmt.Sprintf("%s: unreadable file", up.Field), err)
		}
		head = head[:n]
		sniffed := baseMediaType(http.DetectContentType(head))

		declared := baseMediaType(up.ContentType)
		if declared == "" || declared == "application/octet-stream" {
			declared = sniffed
		}
		if _, ok := allowedUploadTypes[declared]; !ok {
			return nil, utils.E(utils.CodeInvalidArgument, op, fmt.Sprintf("%s: only PDF, JPEG, and PNG files are allowed", up.Field), nil)
		}
		if sniffed != declared {
			return nil, utils.E(utils.CodeInvalidArgument, op, fmt.Sprintf("%s: file content does not match %s", up.Field, declared), nil)
		}

		out = append(out, acceptedUpload{
			kind:     kind,
			fileName: up.FileName,
			size:     up.Size,
			mimeType: declared,
			body:     io.MultiReader(bytes.NewReader(head), up.Body),
		})
	}
	return out, nil
}

func baseMediaType(ct string) string {
	ct = strings.TrimSpace(ct)
	if ct == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.ToLower(ct)
	}
	return mt
}

// objectNameFor names a stored file "<unix-millis>-<original base name>".
// Two uploads of the same name in the same millisecond collide.
func objectNameFor(now time.Time, fileName string) string {
	name := filepath.Base(strings.ReplaceAll(fileName, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == 0:
			return -1
		case r == ' ':
			return '_'
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." {
		name = "document"
	}
	return fmt.Sprintf("%d-%s", now.UnixMilli(), name)
}

// storeUploads writes every accepted file and returns the stored paths by kind
// together with their ledger rows. On error the paths stored so far are returned
// so the caller can report them.
func (s *profileService) storeUploads(ctx context.Context, profileID string, files []acceptedUpload, now time.Time) (map[models.DocumentKind]string, []models.ProfileDocument, error) {
	paths := make(map[models.DocumentKind]string, len(files))
	docs := make([]models.ProfileDocument, 0, len(files))
	for _, f := range files {
		stored, err := s.uploader.Upload(ctx, objectNameFor(now, f.fileName), f.mimeType, f.size, f.body)
		if err != nil {
			return paths, docs, err
		}
		paths[f.kind] = stored
		docs = append(docs, models.ProfileDocument{
			ID:        uuid.NewString(),
			ProfileID: profileID,
			Kind:      f.kind,
			FileName:  f.fileName,
			FilePath:  stored,
			FileSize:  f.size,
			MimeType:  f.mimeType,
			UploadAt:  now,
		})
	}
	return paths, docs, nil
}
