package media

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/inkwellapp/inkwell/internal/apperror"
)

// MediaRepository defines the data access contract for media file records.
type MediaRepository interface {
	Create(ctx context.Context, file *MediaFile) error
	FindByID(ctx context.Context, id string) (*MediaFile, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]MediaFile, int, error)
}

type mediaRepository struct {
	db *sql.DB
}

// NewMediaRepository creates a media repository backed by MariaDB.
func NewMediaRepository(db *sql.DB) MediaRepository {
	return &mediaRepository{db: db}
}

func (r *mediaRepository) Create(ctx context.Context, file *MediaFile) error {
	thumbJSON, err := json.Marshal(file.ThumbnailPaths)
	if err != nil {
		return fmt.Errorf("marshaling thumbnail paths: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO media_files (id, uploaded_by, filename, original_name,
		                         mime_type, file_size, thumbnail_paths, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		file.ID, file.UploadedBy, file.Filename, file.OriginalName,
		file.MimeType, file.FileSize, string(thumbJSON), file.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting media file: %w", err)
	}
	return nil
}

func (r *mediaRepository) FindByID(ctx context.Context, id string) (*MediaFile, error) {
	file := &MediaFile{}
	var thumbJSON string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, uploaded_by, filename, original_name, mime_type, file_size,
		       thumbnail_paths, created_at
		FROM media_files WHERE id = ?`, id,
	).Scan(
		&file.ID, &file.UploadedBy, &file.Filename, &file.OriginalName,
		&file.MimeType, &file.FileSize, &thumbJSON, &file.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("media file not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying media file by id: %w", err)
	}

	file.ThumbnailPaths = make(map[string]string)
	if thumbJSON != "" && thumbJSON != "{}" {
		if err := json.Unmarshal([]byte(thumbJSON), &file.ThumbnailPaths); err != nil {
			return nil, fmt.Errorf("unmarshaling thumbnail paths: %w", err)
		}
	}
	return file, nil
}

func (r *mediaRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM media_files WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting media file: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NewNotFound("media file not found")
	}
	return nil
}

func (r *mediaRepository) List(ctx context.Context, limit, offset int) ([]MediaFile, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM media_files`).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("counting media files: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, uploaded_by, filename, original_name, mime_type, file_size,
		       thumbnail_paths, created_at
		FROM media_files
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing media files: %w", err)
	}
	defer rows.Close()

	var files []MediaFile
	for rows.Next() {
		var f MediaFile
		var thumbJSON string
		if err := rows.Scan(
			&f.ID, &f.UploadedBy, &f.Filename, &f.OriginalName,
			&f.MimeType, &f.FileSize, &thumbJSON, &f.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scanning media file row: %w", err)
		}
		f.ThumbnailPaths = make(map[string]string)
		if thumbJSON != "" && thumbJSON != "{}" {
			if err := json.Unmarshal([]byte(thumbJSON), &f.ThumbnailPaths); err != nil {
				return nil, 0, fmt.Errorf("unmarshaling thumbnail paths: %w", err)
			}
		}
		files = append(files, f)
	}
	return files, total, rows.Err()
}
