package entries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/keyxmakerx/tally/internal/apperror"
	"github.com/keyxmakerx/tally/internal/database"
)

// Repository defines the data access contract for one entry kind. All SQL
// lives here; table names come from the Kind.
type Repository interface {
	// List returns one page of the user's entries (with tags) plus the
	// total number of matches.
	List(ctx context.Context, userID string, f Filter) ([]Entry, int, error)

	// FindByID returns an entry with its tags, regardless of owner.
	FindByID(ctx context.Context, id int64) (*Entry, error)

	// Create inserts e and links it to those tagIDs the owner actually owns,
	// in one transaction. e.ID is set on success.
	Create(ctx context.Context, e *Entry, tagIDs []int64) error

	// Update rewrites e's scalar fields. When syncTags is true the link set
	// is made to match the owned subset of tagIDs. One transaction.
	Update(ctx context.Context, e *Entry, tagIDs []int64, syncTags bool) error

	// Delete removes an entry; its links cascade.
	Delete(ctx context.Context, id int64) error

	// Totals returns the sum of all amounts and the sum within [from, to).
	Totals(ctx context.Context, userID string, from, to time.Time) (total, inRange decimal.Decimal, err error)

	// GroupTotals sums amounts per category/source.
	GroupTotals(ctx context.Context, userID string) ([]GroupTotal, error)

	// Recent returns the newest entries by date, with tags.
	Recent(ctx context.Context, userID string, limit int) ([]Entry, error)
}

// repository implements Repository with hand-written MariaDB queries.
type repository struct {
	db   *sql.DB
	kind Kind
}

// NewRepository creates a repository for the given kind.
func NewRepository(db *sql.DB, kind Kind) Repository {
	return &repository{db: db, kind: kind}
}

// columns lists the selected columns in scan order.
func (r *repository) columns() string {
	cols := "id, user_id, amount, description, " + r.kind.GroupColumn + ", date, created_at, updated_at"
	if r.kind.HasReceipt {
		cols += ", receipt_image_url"
	}
	return cols
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *repository) scan(s scanner) (*Entry, error) {
	var (
		e       Entry
		group   string
		receipt sql.NullString
	)
	dest := []any{&e.ID, &e.UserID, &e.Amount, &e.Description, &group, &e.Date.Time, &e.CreatedAt, &e.UpdatedAt}
	if r.kind.HasReceipt {
		dest = append(dest, &receipt)
	}
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	r.kind.setGroup(&e, group)
	if receipt.Valid {
		e.ReceiptImageURL = &receipt.String
	}
	e.Tags = []TagRef{}
	return &e, nil
}

// List filters, counts and pages in two queries, then loads tags for the
// page in a third.
func (r *repository) List(ctx context.Context, userID string, f Filter) ([]Entry, int, error) {
	where := "WHERE user_id = ?"
	args := []any{userID}

	if f.StartDate != nil && f.EndDate != nil {
		where += " AND date BETWEEN ? AND ?"
		args = append(args, f.StartDate.Format(DateLayout), f.EndDate.Format(DateLayout))
	}
	if f.Group != "" {
		where += " AND " + r.kind.GroupColumn + " = ?"
		args = append(args, f.Group)
	}
	if f.TagID > 0 {
		where += fmt.Sprintf(" AND id IN (SELECT %s FROM %s WHERE tag_id = ?)", r.kind.LinkColumn, r.kind.LinkTable)
		args = append(args, f.TagID)
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s %s", r.kind.Table, where)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting %s: %w", r.kind.Plural, err)
	}

	query := fmt.Sprintf(`SELECT %s FROM %s %s
	          ORDER BY date DESC, id DESC
	          LIMIT ? OFFSET ?`, r.columns(), r.kind.Table, where)

	pageArgs := append(args, f.PerPage, f.Offset())
	entries, err := r.query(ctx, query, pageArgs...)
	if err != nil {
		return nil, 0, err
	}
	if err := r.attachTags(ctx, entries); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// FindByID retrieves a single entry. Returns apperror.NotFound if missing.
func (r *repository) FindByID(ctx context.Context, id int64) (*Entry, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", r.columns(), r.kind.Table)

	e, err := r.scan(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound(r.kind.title() + " not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying %s by id: %w", r.kind.Name, err)
	}

	one := []Entry{*e}
	if err := r.attachTags(ctx, one); err != nil {
		return nil, err
	}
	return &one[0], nil
}

// Create inserts the row and its tag links atomically.
func (r *repository) Create(ctx context.Context, e *Entry, tagIDs []int64) error {
	cols := "user_id, amount, description, " + r.kind.GroupColumn + ", date"
	args := []any{e.UserID, e.Amount, e.Description, r.kind.group(e), e.Date.Format(DateLayout)}
	if r.kind.HasReceipt {
		cols += ", receipt_image_url"
		args = append(args, e.ReceiptImageURL)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", r.kind.Table, cols, database.Placeholders(len(args)))

	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("inserting %s: %w", r.kind.Name, err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("getting last insert id: %w", err)
		}
		e.ID = id

		owned, err := ownedTagIDs(ctx, tx, e.UserID, tagIDs)
		if err != nil {
			return err
		}
		return r.insertLinks(ctx, tx, e.ID, owned)
	})
}

// Update rewrites the scalar fields and, when asked, synchronises links.
func (r *repository) Update(ctx context.Context, e *Entry, tagIDs []int64, syncTags bool) error {
	set := "amount = ?, description = ?, " + r.kind.GroupColumn + " = ?, date = ?"
	args := []any{e.Amount, e.Description, r.kind.group(e), e.Date.Format(DateLayout)}
	if r.kind.HasReceipt {
		set += ", receipt_image_url = ?"
		args = append(args, e.ReceiptImageURL)
	}
	args = append(args, e.ID)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", r.kind.Table, set)

	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("updating %s: %w", r.kind.Name, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("checking rows affected: %w", err)
		}
		if n == 0 {
			return apperror.NewNotFound(r.kind.title() + " not found")
		}

		if !syncTags {
			return nil
		}

		owned, err := ownedTagIDs(ctx, tx, e.UserID, tagIDs)
		if err != nil {
			return err
		}
		return r.syncLinks(ctx, tx, e.ID, owned)
	})
}

// Delete removes an entry by ID.
func (r *repository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", r.kind.Table), id)
	if err != nil {
		return fmt.Errorf("deleting %s: %w", r.kind.Name, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NewNotFound(r.kind.title() + " not found")
	}
	return nil
}

// Totals computes the overall and in-range sums in one pass.
func (r *repository) Totals(ctx context.Context, userID string, from, to time.Time) (decimal.Decimal, decimal.Decimal, error) {
	query := fmt.Sprintf(`SELECT COALESCE(SUM(amount), 0),
	                 COALESCE(SUM(CASE WHEN date >= ? AND date < ? THEN amount ELSE 0 END), 0)
	          FROM %s WHERE user_id = ?`, r.kind.Table)

	var total, inRange decimal.Decimal
	err := r.db.QueryRowContext(ctx, query, from.Format(DateLayout), to.Format(DateLayout), userID).
		Scan(&total, &inRange)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("summing %s: %w", r.kind.Plural, err)
	}
	return total, inRange, nil
}

// GroupTotals returns one row per distinct category/source.
func (r *repository) GroupTotals(ctx context.Context, userID string) ([]GroupTotal, error) {
	col := r.kind.GroupColumn
	query := fmt.Sprintf(`SELECT %s, SUM(amount) FROM %s
	          WHERE user_id = ?
	          GROUP BY %s
	          ORDER BY %s`, col, r.kind.Table, col, col)

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("grouping %s by %s: %w", r.kind.Plural, col, err)
	}
	defer rows.Close()

	groups := []GroupTotal{}
	for rows.Next() {
		var g GroupTotal
		if err := rows.Scan(&g.Name, &g.Total); err != nil {
			return nil, fmt.Errorf("scanning %s total: %w", col, err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s totals: %w", col, err)
	}
	return groups, nil
}

// Recent returns the newest entries with their tags.
func (r *repository) Recent(ctx context.Context, userID string, limit int) ([]Entry, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE user_id = ?
	          ORDER BY date DESC, id DESC
	          LIMIT ?`, r.columns(), r.kind.Table)

	entries, err := r.query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	if err := r.attachTags(ctx, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// --- Helpers ---

func (r *repository) query(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", r.kind.Plural, err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", r.kind.Name, err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s rows: %w", r.kind.Name, err)
	}
	return entries, nil
}

// attachTags loads tags for all entries in a single query, avoiding N+1.
func (r *repository) attachTags(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	args := make([]any, len(entries))
	index := make(map[int64]int, len(entries))
	for i, e := range entries {
		args[i] = e.ID
		index[e.ID] = i
	}

	query := fmt.Sprintf(`SELECT l.%s, t.id, t.name, t.color
	          FROM tags t
	          INNER JOIN %s l ON l.tag_id = t.id
	          WHERE l.%s IN (%s)
	          ORDER BY t.name ASC`,
		r.kind.LinkColumn, r.kind.LinkTable, r.kind.LinkColumn, database.Placeholders(len(args)))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("loading %s tags: %w", r.kind.Name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var entryID int64
		var t TagRef
		if err := rows.Scan(&entryID, &t.ID, &t.Name, &t.Color); err != nil {
			return fmt.Errorf("scanning %s tag row: %w", r.kind.Name, err)
		}
		if i, ok := index[entryID]; ok {
			entries[i].Tags = append(entries[i].Tags, t)
		}
	}
	return rows.Err()
}

// ownedTagIDs narrows ids to the tags userID owns. Unknown and foreign ids
// are dropped without error.
func ownedTagIDs(ctx context.Context, tx *sql.Tx, userID string, ids []int64) ([]int64, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil, nil
	}

	args := make([]any, 0, len(ids)+1)
	args = append(args, userID)
	for _, id := range ids {
		args = append(args, id)
	}

	query := fmt.Sprintf("SELECT id FROM tags WHERE user_id = ? AND id IN (%s) ORDER BY id",
		database.Placeholders(len(ids)))

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("filtering owned tags: %w", err)
	}
	defer rows.Close()

	var owned []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning owned tag id: %w", err)
		}
		owned = append(owned, id)
	}
	return owned, rows.Err()
}

// insertLinks adds (entryID, tagID) rows, ignoring ones that already exist.
func (r *repository) insertLinks(ctx context.Context, tx *sql.Tx, entryID int64, tagIDs []int64) error {
	if len(tagIDs) == 0 {
		return nil
	}

	values := make([]string, len(tagIDs))
	args := make([]any, 0, 2*len(tagIDs))
	for i, id := range tagIDs {
		values[i] = "(?, ?)"
		args = append(args, entryID, id)
	}

	query := fmt.Sprintf("INSERT IGNORE INTO %s (%s, tag_id) VALUES %s",
		r.kind.LinkTable, r.kind.LinkColumn, strings.Join(values, ", "))
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("linking %s tags: %w", r.kind.Name, err)
	}
	return nil
}

// syncLinks removes links outside tagIDs and adds the missing ones.
func (r *repository) syncLinks(ctx context.Context, tx *sql.Tx, entryID int64, tagIDs []int64) error {
	del := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", r.kind.LinkTable, r.kind.LinkColumn)
	args := []any{entryID}
	if len(tagIDs) > 0 {
		del += fmt.Sprintf(" AND tag_id NOT IN (%s)", database.Placeholders(len(tagIDs)))
		for _, id := range tagIDs {
			args = append(args, id)
		}
	}
	if _, err := tx.ExecContext(ctx, del, args...); err != nil {
		return fmt.Errorf("unlinking %s tags: %w", r.kind.Name, err)
	}
	return r.insertLinks(ctx, tx, entryID, tagIDs)
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id > 0 && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
