package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/gophadmin/internal/common"
	"github.com/dmitrijs2005/gophadmin/internal/server/upload"
)

const (
	maxUploadFiles  = 10
	multipartMemory = 32 << 20
)

// maxMultipartBody caps a whole upload request; tests lower it.
var maxMultipartBody int64 = maxUploadFiles*upload.MaxFileSize + 1<<20

type fileValidation struct {
	File   string   `json:"file"`
	Errors []string `json:"errors"`
}

// createUpload handles POST /uploads
//
// Form fields: one or more "file" parts, "path" (target directory) and an
// optional "compress=true". A single file yields one result, several files
// yield a list in submission order.
func (a *API) createUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxMultipartBody)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.fail(w, r, fmt.Errorf("%w: request body exceeds %d bytes", common.ErrorValidation, tooLarge.Limit))
			return
		}
		a.fail(w, r, fmt.Errorf("%w: %v", common.ErrorValidation, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		a.fail(w, r, fmt.Errorf("%w: no file provided", common.ErrorValidation))
		return
	}
	if len(headers) > maxUploadFiles {
		a.fail(w, r, fmt.Errorf("%w: at most %d files per request", common.ErrorValidation, maxUploadFiles))
		return
	}

	compress, _ := strconv.ParseBool(r.FormValue("compress"))
	dir := r.FormValue("path")

	files := make([]*upload.File, 0, len(headers))
	var invalid []fileValidation
	for _, h := range headers {
		f, err := readPart(h)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		if res := a.uploads.Validate(f); !res.Valid {
			invalid = append(invalid, fileValidation{File: h.Filename, Errors: res.Errors})
			continue
		}
		if compress {
			f = a.uploads.Compress(f, a.cfg.UploadMaxWidth, a.cfg.UploadQuality)
		}
		files = append(files, f)
	}
	if len(invalid) > 0 {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "file validation failed", invalid)
		return
	}

	if len(files) == 1 {
		res, err := a.uploads.Upload(r.Context(), files[0], dir)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		respond(w, r, http.StatusCreated, res)
		return
	}

	res, err := a.uploads.UploadMultiple(r.Context(), files, dir)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, res)
}

// readPart loads one multipart file, reading at most one byte past the size
// limit so oversized files fail validation instead of being copied whole.
func readPart(h *multipart.FileHeader) (*upload.File, error) {
	src, err := h.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, upload.MaxFileSize+1))
	if err != nil {
		return nil, err
	}
	return &upload.File{
		Name:        h.Filename,
		ContentType: h.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// deleteUpload handles DELETE /uploads?url=
func (a *API) deleteUpload(w http.ResponseWriter, r *http.Request) {
	u := r.URL.Query().Get("url")
	if u == "" {
		a.fail(w, r, fmt.Errorf("%w: url is required", common.ErrorValidation))
		return
	}
	if err := a.uploads.Remove(r.Context(), u); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
