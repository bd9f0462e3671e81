package handlers

import (
	"errors"
	"net/http"

	mediasvc "github.com/Pavlentius2007/school-photobusiness/internal/services/media"
	"github.com/Pavlentius2007/school-photobusiness/internal/transport/http/dto"
)

// multipartMemoryLimit is how much of an upload is buffered in memory
// before spilling to disk.
const multipartMemoryLimit = 32 << 20

type MediaHandler struct {
	service *mediasvc.Service
}

func NewMediaHandler(service *mediasvc.Service) *MediaHandler {
	return &MediaHandler{service: service}
}

// Upload accepts a multipart form with a "file" part and a "kind"
// field naming the upload class.
func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "MEDIA_SERVICE_UNAVAILABLE", "media service is unavailable")
		return
	}
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "multipart form expected")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "file part is required")
		return
	}
	defer file.Close()

	kind := mediasvc.Kind(r.FormValue("kind"))
	contentType := header.Header.Get("Content-Type")

	upload, err := h.service.Upload(r.Context(), kind, caller.UserID, header.Filename, contentType, file, header.Size)
	if err != nil {
		handleMediaError(w, err)
		return
	}
	writeCreated(w, dto.UploadResponse{Key: upload.Key, URL: upload.URL})
}

func (h *MediaHandler) DownloadURL(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "MEDIA_SERVICE_UNAVAILABLE", "media service is unavailable")
		return
	}

	key := r.URL.Query().Get("key")
	if key == "" {
		writeBadRequest(w, "VALIDATION_ERROR", "key is required")
		return
	}

	url, err := h.service.DownloadURL(r.Context(), key)
	if err != nil {
		handleMediaError(w, err)
		return
	}
	writeOK(w, dto.DownloadURLResponse{URL: url})
}

func handleMediaError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, mediasvc.ErrFileTooBig):
		httpError(w, http.StatusRequestEntityTooLarge, "FILE_TOO_BIG", "file exceeds the size limit")
	case errors.Is(err, mediasvc.ErrBadFileType):
		writeBadRequest(w, "BAD_FILE_TYPE", "file type is not allowed")
	case errors.Is(err, mediasvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "request validation failed")
	default:
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}
