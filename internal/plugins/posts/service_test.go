package posts

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/inkwellapp/inkwell/internal/apperror"
	"github.com/inkwellapp/inkwell/internal/plugins/audit"
	"github.com/inkwellapp/inkwell/internal/plugins/auth"
)

// --- Mock Repositories ---

// mockTagRepo implements TagRepository for testing.
type mockTagRepo struct {
	createFn     func(ctx context.Context, tag *Tag) error
	findByIDFn   func(ctx context.Context, id int64) (*Tag, error)
	nameExistsFn func(ctx context.Context, name string) (bool, error)
	listFn       func(ctx context.Context) ([]Tag, error)
	deleteFn     func(ctx context.Context, id int64) error
}

func (m *mockTagRepo) Create(ctx context.Context, tag *Tag) error {
	if m.createFn != nil {
		return m.createFn(ctx, tag)
	}
	tag.ID = 1
	return nil
}

func (m *mockTagRepo) FindByID(ctx context.Context, id int64) (*Tag, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, apperror.NewNotFound("tag not found")
}

func (m *mockTagRepo) NameExists(ctx context.Context, name string) (bool, error) {
	if m.nameExistsFn != nil {
		return m.nameExistsFn(ctx, name)
	}
	return false, nil
}

func (m *mockTagRepo) List(ctx context.Context) ([]Tag, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockTagRepo) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// mockPostRepo implements PostRepository for testing. Create and Update
// capture the tag IDs passed so tests can assert replacement semantics.
type mockPostRepo struct {
	createFn    func(ctx context.Context, post *Post, tagIDs []int64) error
	updateFn    func(ctx context.Context, post *Post, tagIDs []int64) error
	deleteFn    func(ctx context.Context, id int64) error
	findByIDFn  func(ctx context.Context, id int64) (*Post, error)
	listFn      func(ctx context.Context) ([]Post, error)
	listByTagFn func(ctx context.Context, tagID int64) ([]Post, error)

	lastTagIDs []int64
}

func (m *mockPostRepo) Create(ctx context.Context, post *Post, tagIDs []int64) error {
	m.lastTagIDs = tagIDs
	if m.createFn != nil {
		return m.createFn(ctx, post, tagIDs)
	}
	post.ID = 1
	post.Tags = []Tag{}
	return nil
}

func (m *mockPostRepo) Update(ctx context.Context, post *Post, tagIDs []int64) error {
	m.lastTagIDs = tagIDs
	if m.updateFn != nil {
		return m.updateFn(ctx, post, tagIDs)
	}
	post.Tags = []Tag{}
	return nil
}

func (m *mockPostRepo) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockPostRepo) FindByID(ctx context.Context, id int64) (*Post, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, apperror.NewNotFound("post not found")
}

func (m *mockPostRepo) List(ctx context.Context) ([]Post, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockPostRepo) ListByTag(ctx context.Context, tagID int64) ([]Post, error) {
	if m.listByTagFn != nil {
		return m.listByTagFn(ctx, tagID)
	}
	return nil, nil
}

// mockAudit implements audit.AuditService, capturing logged entries.
type mockAudit struct {
	entries []audit.AuditEntry
}

func (m *mockAudit) Log(ctx context.Context, entry *audit.AuditEntry) error {
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *mockAudit) ListRecent(ctx context.Context, limit int) ([]audit.AuditEntry, error) {
	return m.entries, nil
}

// --- Test Helpers ---

var testUser = &auth.User{ID: 7, Username: "alice"}

// assertAppError checks that err is an *apperror.AppError with the expected code.
func assertAppError(t *testing.T, err error, expectedCode int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %d, got nil", expectedCode)
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperror.AppError, got %T: %v", err, err)
	}
	if appErr.Code != expectedCode {
		t.Errorf("expected status %d, got %d (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
}

// --- Tag Tests ---

func TestCreateTag_Success(t *testing.T) {
	repo := &mockTagRepo{
		createFn: func(ctx context.Context, tag *Tag) error {
			if tag.Name != "go" {
				t.Errorf("expected name go, got %q", tag.Name)
			}
			tag.ID = 3
			return nil
		},
	}
	auditSvc := &mockAudit{}
	svc := NewTagService(repo, auditSvc)

	tag, err := svc.Create(context.Background(), testUser, "  go  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tag.ID != 3 {
		t.Errorf("expected ID 3, got %d", tag.ID)
	}
	if len(auditSvc.entries) != 1 || auditSvc.entries[0].Action != audit.ActionTagCreated {
		t.Errorf("expected one tag.created audit entry, got %+v", auditSvc.entries)
	}
}

func TestCreateTag_Duplicate(t *testing.T) {
	repo := &mockTagRepo{
		nameExistsFn: func(ctx context.Context, name string) (bool, error) {
			return true, nil
		},
	}
	svc := NewTagService(repo, &mockAudit{})

	_, err := svc.Create(context.Background(), testUser, "go")
	assertAppError(t, err, http.StatusConflict)
}

// Two concurrent creates can both pass the pre-check; the unique index turns
// the loser's insert into a Conflict.
func TestCreateTag_DuplicateRace(t *testing.T) {
	repo := &mockTagRepo{
		createFn: func(ctx context.Context, tag *Tag) error {
			return apperror.NewConflict(`tag "go" already exists`)
		},
	}
	svc := NewTagService(repo, &mockAudit{})

	_, err := svc.Create(context.Background(), testUser, "go")
	assertAppError(t, err, http.StatusConflict)
}

func TestCreateTag_EmptyName(t *testing.T) {
	svc := NewTagService(&mockTagRepo{}, &mockAudit{})

	for _, name := range []string{"", "   "} {
		_, err := svc.Create(context.Background(), testUser, name)
		assertAppError(t, err, http.StatusBadRequest)
	}
}

func TestDeleteTag_Referenced(t *testing.T) {
	repo := &mockTagRepo{
		findByIDFn: func(ctx context.Context, id int64) (*Tag, error) {
			return &Tag{ID: id, Name: "go"}, nil
		},
		deleteFn: func(ctx context.Context, id int64) error {
			return apperror.NewConflict("tag is referenced by 2 post(s) and cannot be deleted")
		},
	}
	auditSvc := &mockAudit{}
	svc := NewTagService(repo, auditSvc)

	err := svc.Delete(context.Background(), testUser, 3)
	assertAppError(t, err, http.StatusConflict)

	var appErr *apperror.AppError
	errors.As(err, &appErr)
	if !strings.Contains(appErr.Message, "2") {
		t.Errorf("expected reference count in message, got %q", appErr.Message)
	}
	if len(auditSvc.entries) != 0 {
		t.Error("failed delete must not be audited")
	}
}

func TestDeleteTag_NotFound(t *testing.T) {
	svc := NewTagService(&mockTagRepo{}, &mockAudit{})
	err := svc.Delete(context.Background(), testUser, 999)
	assertAppError(t, err, http.StatusNotFound)
}

func TestDeleteTag_Success(t *testing.T) {
	repo := &mockTagRepo{
		findByIDFn: func(ctx context.Context, id int64) (*Tag, error) {
			return &Tag{ID: id, Name: "go"}, nil
		},
	}
	auditSvc := &mockAudit{}
	svc := NewTagService(repo, auditSvc)

	if err := svc.Delete(context.Background(), testUser, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(auditSvc.entries) != 1 || auditSvc.entries[0].TargetName != "go" {
		t.Errorf("expected audit entry naming the tag, got %+v", auditSvc.entries)
	}
}

// --- Post Tests ---

func TestCreatePost_Success(t *testing.T) {
	repo := &mockPostRepo{
		createFn: func(ctx context.Context, post *Post, tagIDs []int64) error {
			post.ID = 10
			post.Tags = []Tag{{ID: 1, Name: "go"}, {ID: 2, Name: "web"}}
			return nil
		},
	}
	auditSvc := &mockAudit{}
	svc := NewPostService(repo, auditSvc)

	post, err := svc.Create(context.Background(), testUser, PostInput{
		Title:   "Hello",
		Content: "<p>world</p>",
		TagIDs:  []int64{1, 2},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if post.ID != 10 {
		t.Errorf("expected ID 10, got %d", post.ID)
	}
	// Read-after-write: the response must carry the committed tag set.
	if len(post.Tags) != 2 {
		t.Errorf("expected 2 tags on response, got %d", len(post.Tags))
	}
	if len(repo.lastTagIDs) != 2 {
		t.Errorf("expected tag IDs passed through, got %v", repo.lastTagIDs)
	}
	if len(auditSvc.entries) != 1 || auditSvc.entries[0].Action != audit.ActionPostCreated {
		t.Errorf("expected one post.created audit entry, got %+v", auditSvc.entries)
	}
}

func TestCreatePost_SanitizesContent(t *testing.T) {
	var stored string
	repo := &mockPostRepo{
		createFn: func(ctx context.Context, post *Post, tagIDs []int64) error {
			stored = post.Content
			return nil
		},
	}
	svc := NewPostService(repo, &mockAudit{})

	_, err := svc.Create(context.Background(), testUser, PostInput{
		Title:   "XSS attempt",
		Content: `<p>hi</p><script>alert("pwned")</script>`,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(stored, "<script") {
		t.Errorf("script tag survived sanitization: %q", stored)
	}
	if !strings.Contains(stored, "<p>hi</p>") {
		t.Errorf("safe markup should survive sanitization: %q", stored)
	}
}

func TestCreatePost_Validation(t *testing.T) {
	svc := NewPostService(&mockPostRepo{}, &mockAudit{})

	tests := []struct {
		name  string
		input PostInput
	}{
		{"empty title", PostInput{Title: "  ", Content: "body"}},
		{"empty content", PostInput{Title: "t", Content: "  "}},
		{"title too long", PostInput{Title: strings.Repeat("a", 256), Content: "body"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), testUser, tt.input)
			assertAppError(t, err, http.StatusBadRequest)
		})
	}
}

func TestUpdatePost_NotFound(t *testing.T) {
	repo := &mockPostRepo{
		updateFn: func(ctx context.Context, post *Post, tagIDs []int64) error {
			return apperror.NewNotFound("post not found")
		},
	}
	svc := NewPostService(repo, &mockAudit{})

	_, err := svc.Update(context.Background(), testUser, 999, PostInput{Title: "t", Content: "c"})
	assertAppError(t, err, http.StatusNotFound)
}

// An empty tag list must reach the repository as-is: it clears every
// association rather than meaning "leave tags alone".
func TestUpdatePost_EmptyTagListClears(t *testing.T) {
	repo := &mockPostRepo{}
	svc := NewPostService(repo, &mockAudit{})

	post, err := svc.Update(context.Background(), testUser, 10, PostInput{
		Title:   "t",
		Content: "c",
		TagIDs:  []int64{},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.lastTagIDs) != 0 {
		t.Errorf("expected empty tag set passed to repo, got %v", repo.lastTagIDs)
	}
	if post.Tags == nil {
		t.Error("expected empty tag slice on response, got nil")
	}
}

func TestDeletePost_NotFound(t *testing.T) {
	svc := NewPostService(&mockPostRepo{}, &mockAudit{})
	err := svc.Delete(context.Background(), testUser, 999)
	assertAppError(t, err, http.StatusNotFound)
}

func TestDeletePost_Success(t *testing.T) {
	repo := &mockPostRepo{
		findByIDFn: func(ctx context.Context, id int64) (*Post, error) {
			return &Post{ID: id, Title: "Hello", Tags: []Tag{}}, nil
		},
	}
	auditSvc := &mockAudit{}
	svc := NewPostService(repo, auditSvc)

	if err := svc.Delete(context.Background(), testUser, 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(auditSvc.entries) != 1 || auditSvc.entries[0].TargetName != "Hello" {
		t.Errorf("expected audit entry naming the post, got %+v", auditSvc.entries)
	}
}

func TestListPosts_EmptyIsSliceNotNil(t *testing.T) {
	svc := NewPostService(&mockPostRepo{}, &mockAudit{})

	posts, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if posts == nil {
		t.Error("expected empty slice, got nil")
	}
}

func TestGetPost_NotFound(t *testing.T) {
	svc := NewPostService(&mockPostRepo{}, &mockAudit{})
	_, err := svc.Get(context.Background(), 999)
	assertAppError(t, err, http.StatusNotFound)
}

func TestListByTag_PassesTagID(t *testing.T) {
	var gotTagID int64
	repo := &mockPostRepo{
		listByTagFn: func(ctx context.Context, tagID int64) ([]Post, error) {
			gotTagID = tagID
			return []Post{{ID: 1, Tags: []Tag{{ID: 2, Name: "go"}, {ID: 5, Name: "web"}}}}, nil
		},
	}
	svc := NewPostService(repo, &mockAudit{})

	posts, err := svc.ListByTag(context.Background(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotTagID != 2 {
		t.Errorf("expected tag ID 2, got %d", gotTagID)
	}
	// Each post carries its full tag set, not just the queried tag.
	if len(posts) != 1 || len(posts[0].Tags) != 2 {
		t.Errorf("expected full tag set on each post, got %+v", posts)
	}
}
