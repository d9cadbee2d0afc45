package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"picstore/internal/models"
)

const imageColumns = "id, owner_id, creator_id, visibility, content, size_bytes, label, media_type, width, height, created_at"

// ProfileSwap asks CreateImage to make the new image the owner's profile picture.
type ProfileSwap bool

const (
	NoProfileSwap  ProfileSwap = false
	SwapProfilePic ProfileSwap = true
)

// CreateImageResult reports the outcome of CreateImage.
type CreateImageResult struct {
	Image           *models.Image
	ReplacedImageID *int64
}

// CreateImage inserts one image record. When swap is set, the owner's profile
// picture reference is reseated onto the new record and the previously
// referenced image is deleted, all in one transaction.
func (s *Store) CreateImage(ctx context.Context, image *models.Image, swap ProfileSwap) (result *CreateImageResult, err error) {
	if image == nil {
		return nil, fmt.Errorf("image is required")
	}
	if image.OwnerID <= 0 || image.CreatorID <= 0 {
		return nil, fmt.Errorf("owner and creator are required")
	}
	if len(image.Content) == 0 {
		return nil, fmt.Errorf("image content is required")
	}
	if image.Visibility == "" {
		image.Visibility = models.VisibilityAll
	}
	if !models.IsValidVisibility(image.Visibility) {
		return nil, fmt.Errorf("invalid visibility: %s", image.Visibility)
	}
	if image.CreatedAt.IsZero() {
		image.CreatedAt = time.Now().UTC()
	}
	image.SizeBytes = int64(len(image.Content))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO images (owner_id, creator_id, visibility, content, size_bytes, label, media_type, width, height, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, image.OwnerID, image.CreatorID, string(image.Visibility), image.Content, image.SizeBytes,
		nullIfEmpty(image.Label), image.MediaType, image.Width, image.Height, dbFormatTime(image.CreatedAt))
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	image.ID = id

	result = &CreateImageResult{Image: image}
	if !swap {
		if err = tx.Commit(); err != nil {
			return nil, err
		}
		return result, nil
	}

	var previous sql.NullInt64
	err = tx.QueryRowContext(ctx, `SELECT profile_image_id FROM users WHERE id = ?`, image.OwnerID).Scan(&previous)
	if err != nil {
		if err == sql.ErrNoRows {
			err = fmt.Errorf("owner %d not found", image.OwnerID)
		}
		return nil, err
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE users
		SET profile_image_id = ?, updated_at = ?
		WHERE id = ?
	`, id, dbFormatTime(image.CreatedAt), image.OwnerID); err != nil {
		return nil, err
	}

	if previous.Valid && previous.Int64 != id {
		if _, err = tx.ExecContext(ctx, `DELETE FROM images WHERE id = ?`, previous.Int64); err != nil {
			return nil, err
		}
		replaced := previous.Int64
		result.ReplacedImageID = &replaced
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetImage returns one image record including its payload, or nil when absent.
func (s *Store) GetImage(ctx context.Context, id int64) (*models.Image, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+imageColumns+` FROM images WHERE id = ? LIMIT 1`, id)
	return scanImage(row)
}

// DeleteImage removes one image record. Profile references to it are cleared
// by the foreign key.
func (s *Store) DeleteImage(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM images WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func scanImage(scanner rowScanner) (*models.Image, error) {
	var image models.Image
	var visibility string
	var label, mediaType sql.NullString
	var createdAt string
	if err := scanner.Scan(
		&image.ID,
		&image.OwnerID,
		&image.CreatorID,
		&visibility,
		&image.Content,
		&image.SizeBytes,
		&label,
		&mediaType,
		&image.Width,
		&image.Height,
		&createdAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	image.Visibility = models.Visibility(visibility)
	image.Label = label.String
	image.MediaType = mediaType.String

	parsed, err := dbParseTime(createdAt)
	if err != nil {
		return nil, err
	}
	image.CreatedAt = parsed
	return &image, nil
}

// CountImagesByOwner returns how many images each owner holds.
func (s *Store) CountImagesByOwner(ctx context.Context) (map[int64]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT owner_id, COUNT(*) FROM images GROUP BY owner_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var ownerID int64
		var count int
		if err := rows.Scan(&ownerID, &count); err != nil {
			return nil, err
		}
		counts[ownerID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}
