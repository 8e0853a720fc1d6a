package posts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/inkwellapp/inkwell/internal/apperror"
	"github.com/inkwellapp/inkwell/internal/plugins/audit"
	"github.com/inkwellapp/inkwell/internal/plugins/auth"
	"github.com/inkwellapp/inkwell/internal/sanitize"
)

const (
	maxTagNameLength = 100
	maxTitleLength   = 255
	maxSummaryLength = 500
)

// TagService implements tag business logic: uniqueness on create, and
// referential integrity on delete.
type TagService struct {
	repo  TagRepository
	audit audit.AuditService
}

// NewTagService creates a tag service.
func NewTagService(repo TagRepository, auditSvc audit.AuditService) *TagService {
	return &TagService{repo: repo, audit: auditSvc}
}

// Create creates a tag with a unique name. The pre-check gives a precise
// Conflict message; the unique index catches the race where two requests
// create the same name concurrently.
func (s *TagService) Create(ctx context.Context, user *auth.User, name string) (*Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.NewBadRequest("tag name is required")
	}
	if utf8.RuneCountInString(name) > maxTagNameLength {
		return nil, apperror.NewBadRequest(fmt.Sprintf("tag name must be at most %d characters", maxTagNameLength))
	}

	exists, err := s.repo.NameExists(ctx, name)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("checking tag name: %w", err))
	}
	if exists {
		return nil, apperror.NewConflict(fmt.Sprintf("tag %q already exists", name))
	}

	tag := &Tag{Name: name}
	if err := s.repo.Create(ctx, tag); err != nil {
		if apperror.IsAppError(err) {
			return nil, err
		}
		return nil, apperror.NewInternal(fmt.Errorf("creating tag: %w", err))
	}

	slog.Info("Tag created", slog.Int64("tag_id", tag.ID), slog.String("name", tag.Name))
	s.recordAudit(ctx, user, audit.ActionTagCreated, "tag", tag.ID, tag.Name)
	return tag, nil
}

// Get retrieves a single tag.
func (s *TagService) Get(ctx context.Context, id int64) (*Tag, error) {
	tag, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if apperror.IsAppError(err) {
			return nil, err
		}
		return nil, apperror.NewInternal(fmt.Errorf("getting tag: %w", err))
	}
	return tag, nil
}

// List returns all tags ordered by name.
func (s *TagService) List(ctx context.Context) ([]Tag, error) {
	tags, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing tags: %w", err))
	}
	if tags == nil {
		tags = []Tag{}
	}
	return tags, nil
}

// Delete removes a tag. Fails with NotFound if absent and with Conflict if
// any post still references it; the referencing count is part of the message.
func (s *TagService) Delete(ctx context.Context, user *auth.User, id int64) error {
	tag, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if apperror.IsAppError(err) {
			return err
		}
		return apperror.NewInternal(fmt.Errorf("loading tag for delete: %w", err))
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if apperror.IsAppError(err) {
			return err
		}
		return apperror.NewInternal(fmt.Errorf("deleting tag: %w", err))
	}

	slog.Info("Tag deleted", slog.Int64("tag_id", id), slog.String("name", tag.Name))
	s.recordAudit(ctx, user, audit.ActionTagDeleted, "tag", id, tag.Name)
	return nil
}

func (s *TagService) recordAudit(ctx context.Context, user *auth.User, action, targetType string, targetID int64, targetName string) {
	recordAudit(ctx, s.audit, user, action, targetType, targetID, targetName)
}

// PostService implements post business logic: input validation, content
// sanitization, tag-set replacement semantics, and eager tag loading.
type PostService struct {
	repo  PostRepository
	audit audit.AuditService
}

// NewPostService creates a post service.
func NewPostService(repo PostRepository, auditSvc audit.AuditService) *PostService {
	return &PostService{repo: repo, audit: auditSvc}
}

// Create persists a new post with the resolved tag set. Unknown tag IDs are
// dropped silently. The returned post carries the tag set as committed.
func (s *PostService) Create(ctx context.Context, user *auth.User, input PostInput) (*Post, error) {
	post, err := buildPost(input)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, post, input.TagIDs); err != nil {
		if apperror.IsAppError(err) {
			return nil, err
		}
		return nil, apperror.NewInternal(fmt.Errorf("creating post: %w", err))
	}

	slog.Info("Post created", slog.Int64("post_id", post.ID), slog.String("title", post.Title))
	s.recordAudit(ctx, user, audit.ActionPostCreated, "post", post.ID, post.Title)
	return post, nil
}

// Update replaces a post's fields and its tag set wholesale. An empty tag
// list clears every association.
func (s *PostService) Update(ctx context.Context, user *auth.User, id int64, input PostInput) (*Post, error) {
	post, err := buildPost(input)
	if err != nil {
		return nil, err
	}
	post.ID = id

	if err := s.repo.Update(ctx, post, input.TagIDs); err != nil {
		if apperror.IsAppError(err) {
			return nil, err
		}
		return nil, apperror.NewInternal(fmt.Errorf("updating post: %w", err))
	}

	slog.Info("Post updated", slog.Int64("post_id", post.ID), slog.String("title", post.Title))
	s.recordAudit(ctx, user, audit.ActionPostUpdated, "post", post.ID, post.Title)
	return post, nil
}

// Delete removes a post and its tag associations.
func (s *PostService) Delete(ctx context.Context, user *auth.User, id int64) error {
	post, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if apperror.IsAppError(err) {
			return err
		}
		return apperror.NewInternal(fmt.Errorf("loading post for delete: %w", err))
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if apperror.IsAppError(err) {
			return err
		}
		return apperror.NewInternal(fmt.Errorf("deleting post: %w", err))
	}

	slog.Info("Post deleted", slog.Int64("post_id", id), slog.String("title", post.Title))
	s.recordAudit(ctx, user, audit.ActionPostDeleted, "post", id, post.Title)
	return nil
}

// Get retrieves a single post with its tag set.
func (s *PostService) Get(ctx context.Context, id int64) (*Post, error) {
	post, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if apperror.IsAppError(err) {
			return nil, err
		}
		return nil, apperror.NewInternal(fmt.Errorf("getting post: %w", err))
	}
	return post, nil
}

// List returns all posts, newest first, with tag sets populated.
func (s *PostService) List(ctx context.Context) ([]Post, error) {
	posts, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing posts: %w", err))
	}
	if posts == nil {
		posts = []Post{}
	}
	return posts, nil
}

// ListByTag returns the posts tagged with the given tag, with full tag sets.
func (s *PostService) ListByTag(ctx context.Context, tagID int64) ([]Post, error) {
	posts, err := s.repo.ListByTag(ctx, tagID)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing posts by tag: %w", err))
	}
	if posts == nil {
		posts = []Post{}
	}
	return posts, nil
}

func (s *PostService) recordAudit(ctx context.Context, user *auth.User, action, targetType string, targetID int64, targetName string) {
	recordAudit(ctx, s.audit, user, action, targetType, targetID, targetName)
}

// buildPost validates and normalizes post input. Content is sanitized before
// it ever reaches storage; the stored HTML is what clients render.
func buildPost(input PostInput) (*Post, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperror.NewBadRequest("title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return nil, apperror.NewBadRequest(fmt.Sprintf("title must be at most %d characters", maxTitleLength))
	}
	if strings.TrimSpace(input.Content) == "" {
		return nil, apperror.NewBadRequest("content is required")
	}

	var summary *string
	if input.Summary != nil {
		s := strings.TrimSpace(*input.Summary)
		if s != "" {
			if utf8.RuneCountInString(s) > maxSummaryLength {
				return nil, apperror.NewBadRequest(fmt.Sprintf("summary must be at most %d characters", maxSummaryLength))
			}
			summary = &s
		}
	}

	return &Post{
		Title:   title,
		Content: sanitize.HTML(input.Content),
		Summary: summary,
	}, nil
}

// recordAudit writes an audit entry for a mutation. Audit failures are
// already logged by the audit service and never block the operation.
func recordAudit(ctx context.Context, auditSvc audit.AuditService, user *auth.User, action, targetType string, targetID int64, targetName string) {
	if auditSvc == nil || user == nil {
		return
	}
	_ = auditSvc.Log(ctx, &audit.AuditEntry{
		UserID:     user.ID,
		Username:   user.Username,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		TargetName: targetName,
	})
}
