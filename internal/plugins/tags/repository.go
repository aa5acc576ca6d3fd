package tags

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/keyxmakerx/tally/internal/apperror"
	"github.com/keyxmakerx/tally/internal/database"
)

// TagRepository defines the data access contract for tags and their shares.
type TagRepository interface {
	Create(ctx context.Context, tag *Tag) error
	FindByID(ctx context.Context, id int64) (*Tag, error)
	ListByUser(ctx context.Context, userID string) ([]Tag, error)

	// NameExists reports whether userID already owns a tag called name,
	// ignoring the tag with excludeID (0 excludes nothing).
	NameExists(ctx context.Context, userID, name string, excludeID int64) (bool, error)

	// Update rewrites name and color. is_shared is never touched here.
	Update(ctx context.Context, tag *Tag) error

	// Delete removes a tag; its shares and entry links cascade.
	Delete(ctx context.Context, id int64) error

	ShareExists(ctx context.Context, tagID int64, sharedWith string) (bool, error)

	// AddShare inserts a share row and recomputes is_shared in one
	// transaction.
	AddShare(ctx context.Context, tagID int64, sharedBy, sharedWith string) error

	// RemoveShare deletes the share row, if any, and recomputes is_shared in
	// one transaction.
	RemoveShare(ctx context.Context, tagID int64, sharedWith string) error

	// ListSharedWith returns every tag shared with userID, with the owner.
	ListSharedWith(ctx context.Context, userID string) ([]SharedTag, error)
}

// tagRepository implements TagRepository with MariaDB queries.
type tagRepository struct {
	db *sql.DB
}

// NewTagRepository creates a new tag repository.
func NewTagRepository(db *sql.DB) TagRepository {
	return &tagRepository{db: db}
}

const tagColumns = "id, user_id, name, color, is_shared, created_at, updated_at"

// recomputeShared keeps is_shared equal to "at least one share row exists".
const recomputeShared = `UPDATE tags
	SET is_shared = EXISTS(SELECT 1 FROM tag_shares WHERE tag_id = ?)
	WHERE id = ?`

func (r *tagRepository) Create(ctx context.Context, tag *Tag) error {
	query := `INSERT INTO tags (user_id, name, color, is_shared) VALUES (?, ?, ?, FALSE)`

	result, err := r.db.ExecContext(ctx, query, tag.UserID, tag.Name, tag.Color)
	if err != nil {
		if database.IsDuplicateEntry(err) {
			return apperror.NewConflict("a tag with this name already exists")
		}
		return fmt.Errorf("inserting tag: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting tag insert id: %w", err)
	}
	tag.ID = id
	return nil
}

func (r *tagRepository) FindByID(ctx context.Context, id int64) (*Tag, error) {
	query := "SELECT " + tagColumns + " FROM tags WHERE id = ?"

	var t Tag
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.UserID, &t.Name, &t.Color, &t.IsShared, &t.CreatedAt, &t.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("Tag not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying tag by id: %w", err)
	}
	return &t, nil
}

func (r *tagRepository) ListByUser(ctx context.Context, userID string) ([]Tag, error) {
	query := "SELECT " + tagColumns + " FROM tags WHERE user_id = ? ORDER BY name"

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	defer rows.Close()

	tags := []Tag{}
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.Color, &t.IsShared, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func (r *tagRepository) NameExists(ctx context.Context, userID, name string, excludeID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM tags WHERE user_id = ? AND name = ? AND id <> ?)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, userID, name, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking tag name: %w", err)
	}
	return exists, nil
}

func (r *tagRepository) Update(ctx context.Context, tag *Tag) error {
	query := `UPDATE tags SET name = ?, color = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, tag.Name, tag.Color, tag.ID)
	if err != nil {
		if database.IsDuplicateEntry(err) {
			return apperror.NewConflict("a tag with this name already exists")
		}
		return fmt.Errorf("updating tag: %w", err)
	}
	return requireOneRow(result)
}

func (r *tagRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting tag: %w", err)
	}
	return requireOneRow(result)
}

func (r *tagRepository) ShareExists(ctx context.Context, tagID int64, sharedWith string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM tag_shares WHERE tag_id = ? AND shared_with_user_id = ?)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, tagID, sharedWith).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking tag share: %w", err)
	}
	return exists, nil
}

func (r *tagRepository) AddShare(ctx context.Context, tagID int64, sharedBy, sharedWith string) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO tag_shares (tag_id, shared_by_user_id, shared_with_user_id) VALUES (?, ?, ?)`,
			tagID, sharedBy, sharedWith,
		)
		if err != nil {
			if database.IsDuplicateEntry(err) {
				return apperror.NewConflict("tag already shared with this user")
			}
			return fmt.Errorf("inserting tag share: %w", err)
		}

		if _, err := tx.ExecContext(ctx, recomputeShared, tagID, tagID); err != nil {
			return fmt.Errorf("recomputing is_shared: %w", err)
		}
		return nil
	})
}

func (r *tagRepository) RemoveShare(ctx context.Context, tagID int64, sharedWith string) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM tag_shares WHERE tag_id = ? AND shared_with_user_id = ?`,
			tagID, sharedWith,
		)
		if err != nil {
			return fmt.Errorf("deleting tag share: %w", err)
		}

		if _, err := tx.ExecContext(ctx, recomputeShared, tagID, tagID); err != nil {
			return fmt.Errorf("recomputing is_shared: %w", err)
		}
		return nil
	})
}

func (r *tagRepository) ListSharedWith(ctx context.Context, userID string) ([]SharedTag, error) {
	query := `SELECT t.id, t.user_id, t.name, t.color, t.is_shared, t.created_at, t.updated_at,
	                 u.id, u.name, u.email
	          FROM tag_shares s
	          JOIN tags t ON t.id = s.tag_id
	          JOIN users u ON u.id = t.user_id
	          WHERE s.shared_with_user_id = ?
	          ORDER BY t.name, t.id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing shared tags: %w", err)
	}
	defer rows.Close()

	shared := []SharedTag{}
	for rows.Next() {
		var st SharedTag
		if err := rows.Scan(
			&st.ID, &st.UserID, &st.Name, &st.Color, &st.IsShared, &st.CreatedAt, &st.UpdatedAt,
			&st.User.ID, &st.User.Name, &st.User.Email,
		); err != nil {
			return nil, fmt.Errorf("scanning shared tag: %w", err)
		}
		shared = append(shared, st)
	}
	return shared, rows.Err()
}

// requireOneRow maps "no row matched" to 404. The DSN sets ClientFoundRows,
// so an UPDATE that changes nothing still counts its matched row.
func requireOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NewNotFound("Tag not found")
	}
	return nil
}
