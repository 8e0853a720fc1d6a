// Package audit provides an audit log plugin that records authenticated
// mutations. Every significant change (post and tag CRUD, image uploads) is
// captured as an AuditEntry and persisted to the audit_log table, giving the
// blog owner visibility into who changed what and when.
//
// This is an optional plugin -- it does not modify blog data, only records
// observations about changes made by other plugins.
package audit

import "time"

// --- Action Constants ---
// Each action string follows the pattern "resource.verb" for consistent
// filtering and display grouping.

const (
	// ActionPostCreated is logged when a new post is published.
	ActionPostCreated = "post.created"

	// ActionPostUpdated is logged when a post's content or tag set changes.
	ActionPostUpdated = "post.updated"

	// ActionPostDeleted is logged when a post is removed.
	ActionPostDeleted = "post.deleted"

	// ActionTagCreated is logged when a new tag is created.
	ActionTagCreated = "tag.created"

	// ActionTagDeleted is logged when a tag is removed.
	ActionTagDeleted = "tag.deleted"

	// ActionMediaUploaded is logged when an image is uploaded.
	ActionMediaUploaded = "media.uploaded"

	// ActionMediaDeleted is logged when an uploaded image is removed.
	ActionMediaDeleted = "media.deleted"
)

// AuditEntry represents a single recorded action in the audit log. Each entry
// ties a user action to a target record. TargetName is denormalized so the
// feed stays readable after the target is deleted.
type AuditEntry struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	Username   string    `json:"username"`
	Action     string    `json:"action"`
	TargetType string    `json:"target_type"`
	TargetID   int64     `json:"target_id"`
	TargetName string    `json:"target_name"`
	CreatedAt  time.Time `json:"created_at"`
}
