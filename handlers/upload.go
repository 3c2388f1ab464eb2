package handlers

import (
	"context"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/robertfedus/natours/apperror"
	"github.com/robertfedus/natours/middleware"
	"github.com/robertfedus/natours/models"
)

// ImageStorage is the object-store surface the upload handler needs;
// *service.S3Service implements it.
type ImageStorage interface {
	Upload(ctx context.Context, prefix, originalFilename string, body io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	KeyFromURL(url string) (string, bool)
}

// UploadHandler stores tour images in S3 and writes the resulting URLs onto
// the tour document. Multipart fields: "imageCover" (single) and "images"
// (repeated), both optional but at least one required.
type UploadHandler struct {
	Store    TourStore
	S3       ImageStorage
	MaxBytes int64
}

func (h *UploadHandler) TourImages(w http.ResponseWriter, r *http.Request) {
	id, err := tourID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if h.S3 == nil {
		respondFail(w, http.StatusServiceUnavailable, "Image upload is not configured")
		return
	}
	current, err := h.Store.TourByID(r.Context(), id, middleware.IsAdmin(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}
	if h.MaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes)
	}
	if err := r.ParseMultipartForm(h.MaxBytes); err != nil {
		respondError(w, apperror.Validation("", "Failed to parse multipart form"))
		return
	}

	prefix := "tours/" + id.Hex() + "/"
	update := &models.TourUpdate{}

	if covers := r.MultipartForm.File["imageCover"]; len(covers) > 0 {
		url, err := h.uploadImage(r, covers[0], prefix)
		if err != nil {
			respondError(w, err)
			return
		}
		update.ImageCover = &url
	}
	if gallery := r.MultipartForm.File["images"]; len(gallery) > 0 {
		urls := make([]string, 0, len(gallery))
		for _, fh := range gallery {
			url, err := h.uploadImage(r, fh, prefix)
			if err != nil {
				respondError(w, err)
				return
			}
			urls = append(urls, url)
		}
		update.Images = &urls
	}
	if update.ImageCover == nil && update.Images == nil {
		respondError(w, apperror.Validation("", "Provide an imageCover or images file"))
		return
	}

	tour, err := h.Store.UpdateTour(r.Context(), id, update, middleware.IsAdmin(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}
	h.removeReplaced(r.Context(), current, update)
	respond(w, http.StatusOK, map[string]interface{}{"tour": tour})
}

// removeReplaced deletes the objects whose URLs the update just overwrote.
// Failures are only logged; the tour document already points at the new
// objects.
func (h *UploadHandler) removeReplaced(ctx context.Context, old *models.Tour, update *models.TourUpdate) {
	var urls []string
	if update.ImageCover != nil && old.ImageCover != "" {
		urls = append(urls, old.ImageCover)
	}
	if update.Images != nil {
		urls = append(urls, old.Images...)
	}
	for _, u := range urls {
		key, ok := h.S3.KeyFromURL(u)
		if !ok {
			continue
		}
		if err := h.S3.Delete(ctx, key); err != nil {
			log.Printf("delete replaced image %s: %v", key, err)
		}
	}
}

func (h *UploadHandler) uploadImage(r *http.Request, fh *multipart.FileHeader, prefix string) (string, error) {
	contentType := fh.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return "", apperror.Validation("", "Only image uploads are allowed")
	}
	file, err := fh.Open()
	if err != nil {
		return "", apperror.Operation("open upload", err)
	}
	defer file.Close()

	url, err := h.S3.Upload(r.Context(), prefix, fh.Filename, file, contentType)
	if err != nil {
		return "", apperror.Operation("upload image", err)
	}
	return url, nil
}
