// Package postgres implements the store contracts on top of the shared
// database pool. Every mutation is a single UPDATE statement so the
// row-level write serialization Postgres provides is the atomic unit.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"simplist/internal/models"
	"simplist/internal/store"
)

const listColumns = "id, title, description, items, created_at, updated_at, status"
const itemColumns = "id, content, checked, list_id, created_at, status"

type DB struct {
	db  *sql.DB
	now func() time.Time
}

func New(db *sql.DB) *DB {
	return &DB{db: db, now: time.Now}
}

func (d *DB) Lists() store.ListStore { return &listStore{d} }
func (d *DB) Items() store.ItemStore { return &itemStore{d} }

type listStore struct{ d *DB }

func (s *listStore) Insert(ctx context.Context, list *models.List) error {
	_, err := s.d.db.ExecContext(ctx,
		`INSERT INTO lists (`+listColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		list.ID, list.Title, nullable(list.Description), pq.Array(list.Items),
		list.CreatedAt, list.UpdatedAt, list.Status)
	if err != nil {
		return fmt.Errorf("insert list %s: %w", list.ID, err)
	}
	return nil
}

func (s *listStore) FindByID(ctx context.Context, id string) (*models.List, error) {
	row := s.d.db.QueryRowContext(ctx,
		`SELECT `+listColumns+` FROM lists WHERE id = $1 AND status = $2`,
		id, models.StatusActive)
	return scanList(row)
}

func (s *listStore) UpdateFields(ctx context.Context, id string, patch models.ListPatch) (*models.List, error) {
	sets := []string{"updated_at = $1"}
	args := []interface{}{s.d.now()}
	n := 2
	if patch.Title != nil {
		sets = append(sets, fmt.Sprintf("title = $%d", n))
		args = append(args, *patch.Title)
		n++
	}
	if patch.Description != nil {
		sets = append(sets, fmt.Sprintf("description = $%d", n))
		args = append(args, *patch.Description)
		n++
	}
	if patch.Items != nil {
		sets = append(sets, fmt.Sprintf("items = $%d", n))
		args = append(args, pq.Array(*patch.Items))
		n++
	}
	args = append(args, id, models.StatusActive)
	query := fmt.Sprintf(`UPDATE lists SET %s WHERE id = $%d AND status = $%d RETURNING %s`,
		strings.Join(sets, ", "), n, n+1, listColumns)
	return scanList(s.d.db.QueryRowContext(ctx, query, args...))
}

func (s *listStore) AppendItem(ctx context.Context, listID, itemID string) (*models.List, error) {
	row := s.d.db.QueryRowContext(ctx,
		`UPDATE lists SET items = array_append(items, $1), updated_at = $2
		 WHERE id = $3 AND status = $4 RETURNING `+listColumns,
		itemID, s.d.now(), listID, models.StatusActive)
	return scanList(row)
}

func (s *listStore) RemoveItem(ctx context.Context, listID, itemID string) (*models.List, error) {
	row := s.d.db.QueryRowContext(ctx,
		`UPDATE lists SET items = array_remove(items, $1), updated_at = $2
		 WHERE id = $3 AND status = $4 RETURNING `+listColumns,
		itemID, s.d.now(), listID, models.StatusActive)
	return scanList(row)
}

func (s *listStore) FindAll(ctx context.Context) ([]models.List, error) {
	rows, err := s.d.db.QueryContext(ctx,
		`SELECT `+listColumns+` FROM lists WHERE status = $1 ORDER BY created_at DESC`,
		models.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("query lists: %w", err)
	}
	defer rows.Close()
	var lists []models.List
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			return nil, err
		}
		lists = append(lists, *l)
	}
	return lists, rows.Err()
}

type itemStore struct{ d *DB }

func (s *itemStore) Insert(ctx context.Context, item *models.Item) error {
	_, err := s.d.db.ExecContext(ctx,
		`INSERT INTO items (`+itemColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		item.ID, item.Content, item.Checked, item.ListID, item.CreatedAt, item.Status)
	if err != nil {
		return fmt.Errorf("insert item %s: %w", item.ID, err)
	}
	return nil
}

func (s *itemStore) FindByIDs(ctx context.Context, ids []string) ([]models.Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.d.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ANY($1) AND status = $2`,
		pq.Array(ids), models.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()
	var items []models.Item
	for rows.Next() {
		var it models.Item
		if err := rows.Scan(&it.ID, &it.Content, &it.Checked, &it.ListID, &it.CreatedAt, &it.Status); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *itemStore) UpdateFields(ctx context.Context, id string, patch models.ItemPatch) (*models.Item, error) {
	sets := make([]string, 0, 2)
	args := make([]interface{}, 0, 4)
	n := 1
	if patch.Content != nil {
		sets = append(sets, fmt.Sprintf("content = $%d", n))
		args = append(args, *patch.Content)
		n++
	}
	if patch.Checked != nil {
		sets = append(sets, fmt.Sprintf("checked = $%d", n))
		args = append(args, *patch.Checked)
		n++
	}
	if len(sets) == 0 {
		sets = append(sets, "id = id")
	}
	args = append(args, id, models.StatusActive)
	query := fmt.Sprintf(`UPDATE items SET %s WHERE id = $%d AND status = $%d RETURNING %s`,
		strings.Join(sets, ", "), n, n+1, itemColumns)
	var it models.Item
	err := s.d.db.QueryRowContext(ctx, query, args...).
		Scan(&it.ID, &it.Content, &it.Checked, &it.ListID, &it.CreatedAt, &it.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update item %s: %w", id, err)
	}
	return &it, nil
}

func (s *itemStore) MarkDeleted(ctx context.Context, id string) error {
	res, err := s.d.db.ExecContext(ctx,
		`UPDATE items SET status = $1 WHERE id = $2 AND status = $3`,
		models.StatusDeleted, id, models.StatusActive)
	if err != nil {
		return fmt.Errorf("mark item %s deleted: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanList(row rowScanner) (*models.List, error) {
	var l models.List
	var desc sql.NullString
	var items []string
	err := row.Scan(&l.ID, &l.Title, &desc, pq.Array(&items), &l.CreatedAt, &l.UpdatedAt, &l.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan list: %w", err)
	}
	if desc.Valid {
		l.Description = &desc.String
	}
	l.Items = items
	if l.Items == nil {
		l.Items = []string{}
	}
	return &l, nil
}

func nullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
