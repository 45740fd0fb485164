package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/appdotbuilder/bag-factory-manager-3e44/internal/db"
	"github.com/appdotbuilder/bag-factory-manager-3e44/internal/model"
)

const bagColumns = `id, type, color, material, quantity, created_at`

// SQLBags stores bags in a relational table.
type SQLBags struct {
	DB      *sql.DB
	Dialect db.Dialect
}

// NewSQLBags returns a Bags backed by database.
func NewSQLBags(database *sql.DB, dialect db.Dialect) *SQLBags {
	return &SQLBags{DB: database, Dialect: dialect}
}

// CreateBag inserts a new bag and returns the stored row.
func (s *SQLBags) CreateBag(ctx context.Context, in model.CreateBagInput) (*model.Bag, error) {
	bag := &model.Bag{
		Type:      in.Type,
		Color:     in.Color,
		Material:  in.Material,
		Quantity:  in.Quantity,
		CreatedAt: now().UTC().Truncate(time.Microsecond),
	}

	err := s.DB.QueryRowContext(ctx, s.Dialect.Rebind(
		`INSERT INTO bags (type, color, material, quantity, created_at)
		 VALUES (?, ?, ?, ?, ?) RETURNING id`),
		bag.Type, bag.Color, bag.Material, bag.Quantity, bag.CreatedAt,
	).Scan(&bag.ID)
	if err != nil {
		return nil, storageError("create", fmt.Errorf("creating bag: %w", err))
	}

	return bag, nil
}

// ListBags returns all bags in ascending id order.
func (s *SQLBags) ListBags(ctx context.Context) ([]model.Bag, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+bagColumns+` FROM bags ORDER BY id`,
	)
	if err != nil {
		return nil, storageError("list", fmt.Errorf("listing bags: %w", err))
	}
	defer rows.Close()

	bags := []model.Bag{}
	for rows.Next() {
		var bag model.Bag
		if err := scanBag(rows, &bag); err != nil {
			return nil, storageError("list", fmt.Errorf("scanning bag: %w", err))
		}
		bags = append(bags, bag)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("list", fmt.Errorf("listing bags: %w", err))
	}
	return bags, nil
}

// GetBag returns a bag by ID.
func (s *SQLBags) GetBag(ctx context.Context, id int64) (*model.Bag, error) {
	bag, err := getBag(ctx, s.DB, s.Dialect, id)
	if err != nil {
		return nil, storageError("get", err)
	}
	return bag, nil
}

// UpdateBag overwrites the supplied fields and returns the resulting row.
// Without any supplied field the bag is returned as stored.
func (s *SQLBags) UpdateBag(ctx context.Context, in model.UpdateBagInput) (*model.Bag, error) {
	if in.Empty() {
		return s.GetBag(ctx, in.ID)
	}

	var sets []string
	var args []any
	if v, ok := in.Type.Get(); ok {
		sets = append(sets, "type = ?")
		args = append(args, v)
	}
	if v, ok := in.Color.Get(); ok {
		sets = append(sets, "color = ?")
		args = append(args, v)
	}
	if v, ok := in.Material.Get(); ok {
		sets = append(sets, "material = ?")
		args = append(args, v)
	}
	if v, ok := in.Quantity.Get(); ok {
		sets = append(sets, "quantity = ?")
		args = append(args, v)
	}
	args = append(args, in.ID)

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageError("update", fmt.Errorf("beginning transaction: %w", err))
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, s.Dialect.Rebind(
		`UPDATE bags SET `+strings.Join(sets, ", ")+` WHERE id = ?`), args...)
	if err != nil {
		return nil, storageError("update", fmt.Errorf("updating bag: %w", err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, storageError("update", fmt.Errorf("checking updated rows: %w", err))
	}
	if n == 0 {
		return nil, nil
	}

	bag, err := getBag(ctx, tx, s.Dialect, in.ID)
	if err != nil {
		return nil, storageError("update", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, storageError("update", fmt.Errorf("committing update: %w", err))
	}
	return bag, nil
}

// DeleteBag removes a bag and reports whether it existed.
func (s *SQLBags) DeleteBag(ctx context.Context, id int64) (bool, error) {
	result, err := s.DB.ExecContext(ctx, s.Dialect.Rebind(
		`DELETE FROM bags WHERE id = ?`), id,
	)
	if err != nil {
		return false, storageError("delete", fmt.Errorf("deleting bag: %w", err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, storageError("delete", fmt.Errorf("checking deleted rows: %w", err))
	}
	return n > 0, nil
}

// Close closes the underlying database.
func (s *SQLBags) Close() error {
	return s.DB.Close()
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getBag(ctx context.Context, q queryer, dialect db.Dialect, id int64) (*model.Bag, error) {
	bag := &model.Bag{}
	err := scanBag(q.QueryRowContext(ctx, dialect.Rebind(
		`SELECT `+bagColumns+` FROM bags WHERE id = ?`), id,
	), bag)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting bag: %w", err)
	}
	return bag, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBag(row scanner, bag *model.Bag) error {
	if err := row.Scan(&bag.ID, &bag.Type, &bag.Color, &bag.Material, &bag.Quantity, &bag.CreatedAt); err != nil {
		return err
	}
	bag.CreatedAt = bag.CreatedAt.UTC()
	return nil
}
