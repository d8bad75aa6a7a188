package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalUploader writes documents into a directory that is also served
// statically. Stored paths are relative, e.g. "certificates/1700000000000-ug.pdf".
type LocalUploader struct {
	dir string
}

// NewLocalUploader creates dir when it does not exist yet.
func NewLocalUploader(dir string) (*LocalUploader, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("upload directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &LocalUploader{dir: dir}, nil
}

func (u *LocalUploader) Dir() string { return u.dir }

func (u *LocalUploader) Upload(ctx context.Context, objectName string, _ string, _ int64, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := filepath.Base(filepath.Clean("/" + objectName))
	if name == "/" || name == "." {
		return "", errors.New("invalid object name")
	}

	dst := filepath.Join(u.dir, name)
	f, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(dst)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path.Join(filepath.ToSlash(filepath.Clean(u.dir)), name), nil
}
