package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/startblog/apiserver/internal/storage"
)

const (
	maxMediaBytes  = 32 << 20
	formFieldMedia = "file"
)

// MediaHandler serves uploaded media (post images and attachments) from
// object storage.
type MediaHandler struct {
	media *storage.MediaStore
}

func NewMediaHandler(media *storage.MediaStore) *MediaHandler {
	return &MediaHandler{media: media}
}

// MediaUploadRouter registers the admin upload route.
func MediaUploadRouter(r chi.Router, media *storage.MediaStore, adminOnly func(http.Handler) http.Handler) {
	handler := NewMediaHandler(media)

	r.With(adminOnly).Post("/", handler.Upload)
}

// MediaServeRouter registers the public download route.
func MediaServeRouter(r chi.Router, media *storage.MediaStore) {
	handler := NewMediaHandler(media)

	r.Get("/*", handler.Serve)
}

type MediaUploadResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// Upload stores a multipart file under a fresh object key.
func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMediaBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile(formFieldMedia)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("form field %q is required", formFieldMedia))
		return
	}
	defer file.Close()

	key := storage.NewKey(header.Filename)
	if err := h.media.Save(r.Context(), key, file, header.Size, header.Header.Get("Content-Type")); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store media")
		return
	}

	writeJSON(w, http.StatusCreated, MediaUploadResponse{
		Key: key,
		URL: "/api/media/" + storage.PublicName(key),
	})
}

// Serve streams an object back to the client.
func (h *MediaHandler) Serve(w http.ResponseWriter, r *http.Request) {
	key, err := storage.ParseKey(chi.URLParam(r, "*"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid media key")
		return
	}

	object, err := h.media.Open(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusNotFound, "media not found")
		return
	}
	defer object.Close()

	w.Header().Set("Content-Type", storage.ContentTypeFor(key))
	if _, err := io.Copy(w, object); err != nil {
		// The response is already partially written; nothing to do.
		return
	}
}
