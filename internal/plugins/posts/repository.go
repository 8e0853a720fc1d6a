package posts

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/inkwellapp/inkwell/internal/apperror"
)

// TagRepository defines the data access contract for tags. One repository
// per aggregate root; all SQL lives here.
type TagRepository interface {
	// Create inserts a new tag. The tag's ID is set on the struct after insert.
	Create(ctx context.Context, tag *Tag) error

	// FindByID retrieves a single tag by its primary key.
	FindByID(ctx context.Context, id int64) (*Tag, error)

	// NameExists reports whether a tag with exactly this name exists.
	NameExists(ctx context.Context, name string) (bool, error)

	// List returns all tags ordered alphabetically by name.
	List(ctx context.Context) ([]Tag, error)

	// Delete removes a tag by ID. The delete is refused with a Conflict when
	// any post still references the tag; the check and the delete run in one
	// transaction so a concurrent tagging cannot slip between them.
	Delete(ctx context.Context, id int64) error
}

// PostRepository defines the data access contract for posts and their tag
// associations. Mutations that touch the tag set run as a single transaction
// and return the post with its resolved tag set, read back inside the same
// transaction, so the response can never show a stale or empty association.
type PostRepository interface {
	// Create inserts a post and links the given tag IDs. Unknown tag IDs are
	// silently dropped. The post's ID, timestamps, and Tags are set on return.
	Create(ctx context.Context, post *Post, tagIDs []int64) error

	// Update replaces a post's title, content, and summary, refreshes
	// updated_at, and replaces the tag set wholesale: the prior set is
	// discarded entirely and the resolved new set takes its place, including
	// the empty set. Returns NotFound if the post does not exist.
	Update(ctx context.Context, post *Post, tagIDs []int64) error

	// Delete removes a post and its tag associations.
	Delete(ctx context.Context, id int64) error

	// FindByID retrieves a single post with its tag set populated.
	FindByID(ctx context.Context, id int64) (*Post, error)

	// List returns all posts, newest first, each with its tag set populated.
	List(ctx context.Context) ([]Post, error)

	// ListByTag returns the posts associated with the given tag, newest
	// first, each with its FULL tag set populated (not just the queried tag).
	ListByTag(ctx context.Context, tagID int64) ([]Post, error)
}

type tagRepository struct {
	db *sql.DB
}

// NewTagRepository creates a TagRepository backed by MariaDB.
func NewTagRepository(db *sql.DB) TagRepository {
	return &tagRepository{db: db}
}

func (r *tagRepository) Create(ctx context.Context, tag *Tag) error {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO tags (name) VALUES (?)`, tag.Name)
	if err != nil {
		if isDuplicateEntry(err) {
			return apperror.NewConflict(fmt.Sprintf("tag %q already exists", tag.Name))
		}
		return fmt.Errorf("inserting tag: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting tag insert ID: %w", err)
	}
	tag.ID = id
	return nil
}

func (r *tagRepository) FindByID(ctx context.Context, id int64) (*Tag, error) {
	var t Tag
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM tags WHERE id = ?`, id,
	).Scan(&t.ID, &t.Name, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, apperror.NewNotFound("tag not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying tag by id: %w", err)
	}
	return &t, nil
}

func (r *tagRepository) NameExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM tags WHERE name = ?)`, name,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking tag name existence: %w", err)
	}
	return exists, nil
}

func (r *tagRepository) List(ctx context.Context) ([]Tag, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, created_at FROM tags ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning tag row: %w", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tag rows: %w", err)
	}
	return tags, nil
}

// Delete removes a tag unless any post still references it. There is no
// cascade from post_tags to tags; referential integrity on tag deletion is
// enforced here, inside one transaction.
func (r *tagRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning tag delete transaction: %w", err)
	}
	defer tx.Rollback()

	var refCount int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM post_tags WHERE tag_id = ?`, id,
	).Scan(&refCount)
	if err != nil {
		return fmt.Errorf("counting tag references: %w", err)
	}
	if refCount > 0 {
		return apperror.NewConflict(fmt.Sprintf("tag is referenced by %d post(s) and cannot be deleted", refCount))
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting tag: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NewNotFound("tag not found")
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing tag delete: %w", err)
	}
	return nil
}

type postRepository struct {
	db *sql.DB
}

// NewPostRepository creates a PostRepository backed by MariaDB.
func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *Post, tagIDs []int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning post create transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO posts (title, content, summary)
		VALUES (?, ?, ?)`,
		post.Title, post.Content, post.Summary,
	)
	if err != nil {
		return fmt.Errorf("inserting post: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting post insert ID: %w", err)
	}
	post.ID = id

	if err := r.replaceTagSet(ctx, tx, id, tagIDs); err != nil {
		return err
	}

	// Read the post back inside the transaction so timestamps and the
	// resolved tag set are exactly what was committed.
	if err := r.reload(ctx, tx, post); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing post create: %w", err)
	}
	return nil
}

func (r *postRepository) Update(ctx context.Context, post *Post, tagIDs []int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning post update transaction: %w", err)
	}
	defer tx.Rollback()

	// Existence check first. An UPDATE whose values match the stored row
	// reports zero affected rows on MariaDB, so RowsAffected cannot
	// distinguish "missing" from "unchanged".
	var exists bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM posts WHERE id = ?)`, post.ID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking post existence: %w", err)
	}
	if !exists {
		return apperror.NewNotFound("post not found")
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE posts
		SET title = ?, content = ?, summary = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		post.Title, post.Content, post.Summary, post.ID,
	)
	if err != nil {
		return fmt.Errorf("updating post: %w", err)
	}

	if err := r.replaceTagSet(ctx, tx, post.ID, tagIDs); err != nil {
		return err
	}

	if err := r.reload(ctx, tx, post); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing post update: %w", err)
	}
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting post: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NewNotFound("post not found")
	}
	// post_tags rows are cascade-deleted by the foreign key on post_id.
	return nil
}

func (r *postRepository) FindByID(ctx context.Context, id int64) (*Post, error) {
	var p Post
	err := r.db.QueryRowContext(ctx, `
		SELECT id, title, content, summary, created_at, updated_at
		FROM posts WHERE id = ?`, id,
	).Scan(&p.ID, &p.Title, &p.Content, &p.Summary, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperror.NewNotFound("post not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying post by id: %w", err)
	}

	tags, err := r.postTags(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	p.Tags = tags
	return &p, nil
}

func (r *postRepository) List(ctx context.Context) ([]Post, error) {
	return r.listWhere(ctx, "", nil)
}

func (r *postRepository) ListByTag(ctx context.Context, tagID int64) ([]Post, error) {
	return r.listWhere(ctx,
		`WHERE p.id IN (SELECT post_id FROM post_tags WHERE tag_id = ?)`,
		[]any{tagID})
}

// listWhere runs the shared post list query with an optional filter clause,
// then batch-loads the tag sets for every returned post in a single join
// query keyed by post ID. Two queries total regardless of result size.
func (r *postRepository) listWhere(ctx context.Context, where string, args []any) ([]Post, error) {
	query := fmt.Sprintf(`
		SELECT p.id, p.title, p.content, p.summary, p.created_at, p.updated_at
		FROM posts p
		%s
		ORDER BY p.created_at DESC, p.id DESC`, where)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}
	defer rows.Close()

	var posts []Post
	var ids []int64
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.Title, &p.Content, &p.Summary, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning post row: %w", err)
		}
		posts = append(posts, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating post rows: %w", err)
	}

	tagsByPost, err := r.postTagsBatch(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range posts {
		if tags, ok := tagsByPost[posts[i].ID]; ok {
			posts[i].Tags = tags
		} else {
			posts[i].Tags = []Tag{}
		}
	}
	return posts, nil
}

// querier is the subset of *sql.DB and *sql.Tx used by tag loading, so the
// same helpers serve both transactional reloads and plain reads.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// replaceTagSet discards the post's current tag links and inserts links for
// the given IDs, resolved against the tags table. Unknown IDs are dropped
// without error; duplicates collapse via the composite primary key.
func (r *postRepository) replaceTagSet(ctx context.Context, tx *sql.Tx, postID int64, tagIDs []int64) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM post_tags WHERE post_id = ?`, postID); err != nil {
		return fmt.Errorf("clearing post tags: %w", err)
	}

	resolved, err := r.resolveTagIDs(ctx, tx, tagIDs)
	if err != nil {
		return err
	}
	for _, tagID := range resolved {
		if _, err := tx.ExecContext(ctx,
			`INSERT IGNORE INTO post_tags (post_id, tag_id) VALUES (?, ?)`,
			postID, tagID); err != nil {
			return fmt.Errorf("linking tag to post: %w", err)
		}
	}
	return nil
}

// resolveTagIDs filters the requested IDs down to those that exist.
func (r *postRepository) resolveTagIDs(ctx context.Context, q querier, tagIDs []int64) ([]int64, error) {
	if len(tagIDs) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(tagIDs))
	args := make([]any, len(tagIDs))
	for i, id := range tagIDs {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(`SELECT id FROM tags WHERE id IN (%s)`,
		strings.Join(placeholders, ","))
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("resolving tag ids: %w", err)
	}
	defer rows.Close()

	var resolved []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning resolved tag id: %w", err)
		}
		resolved = append(resolved, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating resolved tag ids: %w", err)
	}
	return resolved, nil
}

// reload refreshes the post's columns and tag set from the given querier,
// typically the open transaction of a mutation.
func (r *postRepository) reload(ctx context.Context, q querier, post *Post) error {
	err := q.QueryRowContext(ctx, `
		SELECT id, title, content, summary, created_at, updated_at
		FROM posts WHERE id = ?`, post.ID,
	).Scan(&post.ID, &post.Title, &post.Content, &post.Summary, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return fmt.Errorf("reloading post: %w", err)
	}

	tags, err := r.postTags(ctx, q, post.ID)
	if err != nil {
		return err
	}
	post.Tags = tags
	return nil
}

// postTags returns the tag set for a single post, ordered by name. Returns
// an empty slice, never nil, so untagged posts serialize as [].
func (r *postRepository) postTags(ctx context.Context, q querier, postID int64) ([]Tag, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT t.id, t.name, t.created_at
		FROM tags t
		INNER JOIN post_tags pt ON pt.tag_id = t.id
		WHERE pt.post_id = ?
		ORDER BY t.name ASC`, postID)
	if err != nil {
		return nil, fmt.Errorf("getting post tags: %w", err)
	}
	defer rows.Close()

	tags := []Tag{}
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning post tag row: %w", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating post tag rows: %w", err)
	}
	return tags, nil
}

// postTagsBatch returns tags for multiple posts in a single query, keyed by
// post ID. This avoids N+1 queries on list views.
func (r *postRepository) postTagsBatch(ctx context.Context, postIDs []int64) (map[int64][]Tag, error) {
	if len(postIDs) == 0 {
		return make(map[int64][]Tag), nil
	}

	placeholders := make([]string, len(postIDs))
	args := make([]any, len(postIDs))
	for i, id := range postIDs {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT pt.post_id, t.id, t.name, t.created_at
		FROM tags t
		INNER JOIN post_tags pt ON pt.tag_id = t.id
		WHERE pt.post_id IN (%s)
		ORDER BY t.name ASC`, strings.Join(placeholders, ","))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("batch getting post tags: %w", err)
	}
	defer rows.Close()

	result := make(map[int64][]Tag)
	for rows.Next() {
		var postID int64
		var t Tag
		if err := rows.Scan(&postID, &t.ID, &t.Name, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning batch post tag row: %w", err)
		}
		result[postID] = append(result[postID], t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating batch post tag rows: %w", err)
	}
	return result, nil
}

// isDuplicateEntry checks if a MariaDB error is a duplicate key violation.
// Error code 1062 is ER_DUP_ENTRY for unique constraint violations.
func isDuplicateEntry(err error) bool {
	return err != nil && strings.Contains(err.Error(), "Duplicate entry")
}
