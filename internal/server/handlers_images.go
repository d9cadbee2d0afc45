package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"picstore/internal/api"
	"picstore/internal/models"
	"picstore/internal/upload"
)

const multipartOverheadBytes = 1 << 20

func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	image, err := s.images.Fetch(r.Context(), r.URL.Query().Get("id"))
	if err != nil {
		if errors.Is(err, ErrNumberFormat) {
			s.log().Warn("image id is not a number", "id", r.URL.Query().Get("id"), "request_id", requestIDFromContext(r.Context()))
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		s.writeServiceError(w, r, err)
		return
	}
	if image == nil {
		s.writePlaceholder(w)
		return
	}

	w.Header().Set("Content-Type", image.MediaType)
	w.Header().Set("Content-Length", strconv.FormatInt(image.SizeBytes, 10))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(image.Content); err != nil {
		s.log().Debug("write image response", "image_id", image.ID, "error", err)
	}
}

func (s *Server) writePlaceholder(w http.ResponseWriter) {
	w.Header().Set("Content-Type", s.placeholder.MediaType)
	w.Header().Set("Content-Length", strconv.Itoa(len(s.placeholder.Content)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(s.placeholder.Content)
}

func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		s.writeServiceError(w, r, internalError(fmt.Errorf("session principal missing")))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.options.MaxUploadBytes+multipartOverheadBytes)
	form, err := s.stager.Parse(r, upload.Limits{
		MaxFileBytes: s.options.MaxUploadBytes,
		MaxMemory:    s.options.MultipartMaxMemory,
	})
	if err != nil {
		s.writeServiceError(w, r, s.classifyUploadError(err))
		return
	}
	defer func() {
		if err := form.RemoveAll(); err != nil {
			s.log().Warn("remove staged upload", "error", err)
		}
	}()

	result, err := s.images.Ingest(r.Context(), principal, IngestInput{
		OwnerID:   form.Value("owner_id"),
		CreatorID: form.Value("creator_id"),
		Label:     form.Value("label"),
		Context:   models.ParseUploadContext(form.Value("context")),
		File:      form.File,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	if result.Context == models.UploadContextProfile {
		http.Redirect(w, r, s.settingsURL(result.Image.OwnerID), http.StatusSeeOther)
		return
	}
	s.writeJSON(w, http.StatusCreated, imageResponse(result.Image))
}

func (s *Server) handleDeleteImage(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		s.writeServiceError(w, r, internalError(fmt.Errorf("session principal missing")))
		return
	}

	if _, err := s.images.Delete(r.Context(), principal, r.URL.Query().Get("id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) classifyUploadError(err error) error {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr):
		return validationError(tooLargeMessage(s.options.MaxUploadBytes))
	case errors.Is(err, upload.ErrMalformed):
		return badRequestCode(err, ErrCodeInvalidMultipart)
	default:
		return internalError(err)
	}
}

func imageResponse(image *models.Image) api.ImageResponse {
	return api.ImageResponse{
		ID:         image.ID,
		OwnerID:    image.OwnerID,
		CreatorID:  image.CreatorID,
		Visibility: string(image.Visibility),
		MediaType:  image.MediaType,
		SizeBytes:  image.SizeBytes,
		Label:      image.Label,
		Width:      image.Width,
		Height:     image.Height,
		CreatedAt:  image.CreatedAt,
	}
}
