// Package media manages image uploads for post content. Uploaded files are
// stored on the local filesystem in a date-based directory structure with
// automatic thumbnail generation, and served back at stable URLs that can be
// embedded in post bodies.
package media

import (
	"time"
)

// MediaFile represents an uploaded image stored on disk.
type MediaFile struct {
	ID             string            `json:"id"`
	UploadedBy     int64             `json:"uploaded_by"`
	Filename       string            `json:"filename"`        // UUID-based path relative to the media root.
	OriginalName   string            `json:"original_name"`   // User's original filename.
	MimeType       string            `json:"mime_type"`
	FileSize       int64             `json:"file_size"`
	ThumbnailPaths map[string]string `json:"thumbnail_paths"` // size -> filename (e.g., "300" -> "uuid_300.jpg").
	CreatedAt      time.Time         `json:"created_at"`
}

// UploadInput holds the validated input for storing an uploaded image.
type UploadInput struct {
	UploadedBy   int64
	Username     string
	OriginalName string
	MimeType     string
	FileSize     int64
	FileBytes    []byte
}

// UploadResponse is the JSON response returned after a successful upload.
// URL points at the full image; clients embed it in post content.
type UploadResponse struct {
	ID           string `json:"id"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	MimeType     string `json:"mime_type"`
	FileSize     int64  `json:"file_size"`
}

// --- MIME Type Validation ---

// AllowedMimeTypes defines which MIME types are accepted for upload.
var AllowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// MimeToExtension maps MIME types to file extensions.
var MimeToExtension = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}
