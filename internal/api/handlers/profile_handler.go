package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kmit-fdms/fdms/internal/models"
	"github.com/kmit-fdms/fdms/internal/services"
)

// multipart form limit held in memory; larger parts spill to temp files
const multipartMemory = 8 << 20

type ProfileHandler struct {
	svc     services.ProfileService
	maxForm int64
}

// NewProfileHandler caps multipart bodies from the per-file limit maxUpload.
func NewProfileHandler(svc services.ProfileService, maxUpload int64) *ProfileHandler {
	return &ProfileHandler{svc: svc, maxForm: services.MaxFormBytes(maxUpload)}
}

// Create accepts either a JSON profile or a multipart form carrying the profile
// as JSON in the "data" field plus document files.
func (h *ProfileHandler) Create(c *gin.Context) {
	const op = "ProfileHandler.Create"

	var (
		p       models.Profile
		uploads []services.Upload
	)

	if isMultipart(c) {
		form, err := h.parseForm(c, op)
		if err != nil {
			writeError(c, err)
			return
		}
		defer form.RemoveAll()

		data := firstValue(form, "data")
		if data == "" {
			writeError(c, badRequest(op, "missing multipart field 'data'", nil))
			return
		}
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			writeError(c, badRequest(op, "invalid profile json in 'data'", err))
			return
		}

		files, closeAll, err := formUploads(form, op)
		defer closeAll()
		if err != nil {
			writeError(c, err)
			return
		}
		uploads = files
	} else if err := c.ShouldBindJSON(&p); err != nil {
		writeError(c, badRequest(op, "invalid request body", err))
		return
	}

	out, err := h.svc.Create(c.Request.Context(), &p, uploads)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

// List returns every profile, or the first match when ?name= is given.
func (h *ProfileHandler) List(c *gin.Context) {
	if name, ok := c.GetQuery("name"); ok {
		h.findByName(c, name)
		return
	}

	out, err := h.svc.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *ProfileHandler) FindByName(c *gin.Context) {
	h.findByName(c, c.Query("name"))
}

func (h *ProfileHandler) findByName(c *gin.Context, name string) {
	p, err := h.svc.FindByName(c.Request.Context(), name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ProfileHandler) Get(c *gin.Context) {
	p, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ProfileHandler) Update(c *gin.Context) {
	const op = "ProfileHandler.Update"

	var patch models.ProfilePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		writeError(c, badRequest(op, "invalid request body", err))
		return
	}

	p, err := h.svc.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ProfileHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Profile deleted"})
}

func (h *ProfileHandler) AttachDocuments(c *gin.Context) {
	const op = "ProfileHandler.AttachDocuments"

	if !isMultipart(c) {
		writeError(c, badRequest(op, "expected multipart/form-data", nil))
		return
	}
	form, err := h.parseForm(c, op)
	if err != nil {
		writeError(c, err)
		return
	}
	defer form.RemoveAll()

	uploads, closeAll, err := formUploads(form, op)
	defer closeAll()
	if err != nil {
		writeError(c, err)
		return
	}

	p, err := h.svc.AttachDocuments(c.Request.Context(), c.Param("id"), uploads)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ProfileHandler) ListDocuments(c *gin.Context) {
	docs, err := h.svc.ListDocuments(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

// parseForm stops reading once the body passes maxForm, so oversized uploads
// never reach the temp files.
func (h *ProfileHandler) parseForm(c *gin.Context, op string) (*multipart.Form, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxForm)
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, badRequest(op, fmt.Sprintf("request body too large (max %dMB)", tooLarge.Limit>>20), err)
		}
		return nil, badRequest(op, "invalid multipart form", err)
	}
	return c.Request.MultipartForm, nil
}

func firstValue(form *multipart.Form, key string) string {
	if vs := form.Value[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// formUploads opens every file part. The returned func closes them and is safe
// to call on error.
func formUploads(form *multipart.Form, op string) ([]services.Upload, func(), error) {
	var opened []multipart.File
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}

	var out []services.Upload
	for field, headers := range form.File {
		if !services.IsUploadField(field) {
			return nil, closeAll, badRequest(op, "unexpected file field '"+field+"'", nil)
		}
		for _, fh := range headers {
			f, err := fh.Open()
			if err != nil {
				return nil, closeAll, badRequest(op, "failed to open upload", err)
			}
			opened = append(opened, f)
			out = append(out, services.Upload{
				Field:       field,
				FileName:    fh.Filename,
				Size:        fh.Size,
				ContentType: fh.Header.Get("Content-Type"),
				Body:        f,
			})
		}
	}
	return out, closeAll, nil
}
