package server

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"picstore/internal/models"
	"picstore/internal/sniff"
	"picstore/internal/store"
	"picstore/internal/upload"
)

const (
	msgNoImage          = "no image"
	msgUnsupportedType  = "image must be of type png or jpeg/jpg"
	msgUnknownFormat    = "file is not a recognised image"
	msgImpersonation    = "cannot create a post as another user"
	msgForeignSettings  = "no permission to modify other's settings"
	msgForeignImage     = "no permission to delete this image"
	defaultImageIDParam = "default"
)

type imageServiceStore interface {
	store.UserStore
	store.ImageStore
}

// ImageService implements upload, retrieval and deletion of stored images.
type ImageService struct {
	store    imageServiceStore
	maxBytes int64
	accepted sniff.AcceptedSet
	logger   *slog.Logger
}

// IngestInput is the parsed upload form.
type IngestInput struct {
	OwnerID   string
	CreatorID string
	Label     string
	Context   models.UploadContext
	File      *upload.File
}

// IngestResult reports the stored image and, for profile uploads, the image it replaced.
type IngestResult struct {
	Image           *models.Image
	Context         models.UploadContext
	ReplacedImageID *int64
}

func NewImageService(st imageServiceStore, maxBytes int64, acceptedMediaTypes []string, logger *slog.Logger) *ImageService {
	if maxBytes <= 0 {
		maxBytes = upload.DefaultMaxFileBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ImageService{
		store:    st,
		maxBytes: maxBytes,
		accepted: sniff.NewAcceptedSet(acceptedMediaTypes),
		logger:   logger.With("component", "images"),
	}
}

// Ingest validates and persists one upload made by principal. Nothing is
// written unless every check passes.
func (s *ImageService) Ingest(ctx context.Context, principal *models.User, in IngestInput) (*IngestResult, error) {
	if principal == nil {
		return nil, internalError(fmt.Errorf("session principal is required"))
	}

	content, err := s.validatedContent(in.File)
	if err != nil {
		return nil, err
	}

	detected, err := sniff.Detect(content)
	if err != nil {
		return nil, formatError(msgUnknownFormat)
	}
	if !s.accepted.Contains(detected.MediaType) {
		return nil, validationError(msgUnsupportedType)
	}

	ownerID, err := parseImageID(in.OwnerID, "owner_id")
	if err != nil {
		return nil, err
	}
	creatorID, err := parseImageID(in.CreatorID, "creator_id")
	if err != nil {
		return nil, err
	}
	owner, err := s.lookupUser(ctx, ownerID, "owner")
	if err != nil {
		return nil, err
	}
	creator, err := s.lookupUser(ctx, creatorID, "creator")
	if err != nil {
		return nil, err
	}

	if creator.ID != principal.ID {
		return nil, authorizationError(msgImpersonation)
	}
	profile := in.Context == models.UploadContextProfile
	if profile && creator.ID != owner.ID && !creator.IsAdmin() {
		return nil, authorizationError(msgForeignSettings)
	}

	image := &models.Image{
		OwnerID:    owner.ID,
		CreatorID:  creator.ID,
		Visibility: models.VisibilityAll,
		Content:    content,
		Label:      strings.TrimSpace(in.Label),
		MediaType:  detected.MediaType,
		Width:      detected.Width,
		Height:     detected.Height,
		CreatedAt:  time.Now().UTC(),
	}
	swap := store.NoProfileSwap
	if profile {
		swap = store.SwapProfilePic
	}

	result, err := s.store.CreateImage(ctx, image, swap)
	if err != nil {
		return nil, storeFailure(err)
	}

	fields := []any{
		"image_id", result.Image.ID,
		"owner_id", owner.ID,
		"creator_id", creator.ID,
		"media_type", image.MediaType,
		"size_bytes", image.SizeBytes,
		"context", string(in.Context),
	}
	if result.ReplacedImageID != nil {
		fields = append(fields, "replaced_image_id", *result.ReplacedImageID)
	}
	s.logger.Info("image stored", fields...)

	return &IngestResult{
		Image:           result.Image,
		Context:         in.Context,
		ReplacedImageID: result.ReplacedImageID,
	}, nil
}

func (s *ImageService) validatedContent(file *upload.File) ([]byte, error) {
	if file == nil || file.Size == 0 {
		return nil, validationError(msgNoImage)
	}
	if file.Oversized || file.Size > s.maxBytes {
		return nil, validationError(tooLargeMessage(s.maxBytes))
	}
	content, err := file.Bytes()
	if err != nil {
		return nil, internalError(fmt.Errorf("read staged upload: %w", err))
	}
	if len(content) == 0 {
		return nil, validationError(msgNoImage)
	}
	if int64(len(content)) > s.maxBytes {
		return nil, validationError(tooLargeMessage(s.maxBytes))
	}
	return content, nil
}

func (s *ImageService) lookupUser(ctx context.Context, id int64, role string) (*models.User, error) {
	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, storeFailure(err)
	}
	if user == nil {
		return nil, notFoundError(fmt.Sprintf("%s not found", role), ErrCodeUserNotFound)
	}
	return user, nil
}

// Fetch resolves the id query parameter. A nil image with a nil error means
// the placeholder should be served.
func (s *ImageService) Fetch(ctx context.Context, idParam string) (*models.Image, error) {
	idParam = strings.TrimSpace(idParam)
	if idParam == "" || idParam == defaultImageIDParam {
		return nil, nil
	}
	id, err := parseImageID(idParam, "id")
	if err != nil {
		return nil, err
	}
	image, err := s.store.GetImage(ctx, id)
	if err != nil {
		return nil, storeFailure(err)
	}
	return image, nil
}

// Delete removes an image on behalf of its owner or an admin.
func (s *ImageService) Delete(ctx context.Context, principal *models.User, idParam string) (*models.Image, error) {
	if principal == nil {
		return nil, internalError(fmt.Errorf("session principal is required"))
	}
	id, err := parseImageID(idParam, "id")
	if err != nil {
		return nil, err
	}
	image, err := s.store.GetImage(ctx, id)
	if err != nil {
		return nil, storeFailure(err)
	}
	if image == nil {
		return nil, notFoundError("image not found", ErrCodeImageNotFound)
	}
	if image.OwnerID != principal.ID && !principal.IsAdmin() {
		return nil, authorizationError(msgForeignImage)
	}

	deleted, err := s.store.DeleteImage(ctx, id)
	if err != nil {
		return nil, storeFailure(err)
	}
	if !deleted {
		return nil, notFoundError("image not found", ErrCodeImageNotFound)
	}
	s.logger.Info("image deleted", "image_id", id, "owner_id", image.OwnerID, "by", principal.ID)
	return image, nil
}

func parseImageID(raw, field string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, numberFormatError(field)
	}
	return id, nil
}

func tooLargeMessage(maxBytes int64) string {
	if maxBytes%(1<<20) == 0 {
		return fmt.Sprintf("image too large, must be at most %dMB", maxBytes>>20)
	}
	return fmt.Sprintf("image too large, must be at most %d bytes", maxBytes)
}
