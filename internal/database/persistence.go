package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"account-ledger-go/internal/models"
	"account-ledger-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// entityDescriptor maps an entity kind onto its table layout. The column
// order must match Entity.Values; the scan function must read the columns in
// the same order followed by the version column.
type entityDescriptor[E models.Entity] struct {
	table      string
	primaryKey string
	columns    []string
	scan       func(row rowScanner) (E, error)
}

type rowScanner interface {
	Scan(dest ...any) error
}

// querier is satisfied by both *sql.DB and *sql.Tx so the primitives work
// inside and outside an explicit transaction scope.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// fieldValue is a single column assignment for a versioned update.
type fieldValue struct {
	column string
	value  any
}

// storeEntity assigns a fresh id when unset, runs the entity-specific process
// hook, then inserts the row. A rejecting hook surfaces as-is (the hooks wrap
// store.ErrValidation); driver faults wrap store.ErrPersistence.
func storeEntity[E models.Entity](ctx context.Context, q querier, desc entityDescriptor[E], entity E, process func(context.Context, E) error) error {
	if entity.EntityID() == uuid.Nil {
		entity.AssignID(uuid.New())
	}

	if err := process(ctx, entity); err != nil {
		return err
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		desc.table, strings.Join(desc.columns, ", "), placeholders(len(desc.columns)))
	if _, err := q.ExecContext(ctx, query, entity.Values()...); err != nil {
		zap.L().Error("Failed to insert record", zap.String("table", desc.table), zap.Error(err))
		return fmt.Errorf("%w: inserting into %s: %v", store.ErrPersistence, desc.table, err)
	}

	return nil
}

// findByID looks up a single record by primary key. Absence and read faults
// both surface as store.ErrNotFound; a successful lookup never returns a zero
// sentinel.
func findByID[E models.Entity](ctx context.Context, q querier, desc entityDescriptor[E], id uuid.UUID) (E, error) {
	var zero E

	query := fmt.Sprintf("SELECT %s, version FROM %s WHERE %s = ?",
		strings.Join(desc.columns, ", "), desc.table, desc.primaryKey)
	entity, err := desc.scan(q.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		return zero, fmt.Errorf("%w: %s %s", store.ErrNotFound, desc.table, id)
	}

	return entity, nil
}

// findAll materializes every row of the table. An empty table is an empty
// result, never an error; read faults wrap store.ErrPersistence.
func findAll[E models.Entity](ctx context.Context, q querier, desc entityDescriptor[E]) ([]E, error) {
	query := fmt.Sprintf("SELECT %s, version FROM %s", strings.Join(desc.columns, ", "), desc.table)
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: querying %s: %v", store.ErrPersistence, desc.table, err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var entities []E
	for rows.Next() {
		entity, err := desc.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning %s row: %v", store.ErrPersistence, desc.table, err)
		}
		entities = append(entities, entity)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating %s rows: %v", store.ErrPersistence, desc.table, err)
	}

	return entities, nil
}

// updateFields applies a versioned field-level update. The row must still
// carry the version observed at read time; a vanished or concurrently bumped
// row surfaces as store.ErrConcurrentModification.
func updateFields[E models.Entity](ctx context.Context, q querier, desc entityDescriptor[E], id uuid.UUID, version int64, fields []fieldValue) error {
	set := make([]string, 0, len(fields)+2)
	args := make([]any, 0, len(fields)+2)
	for _, field := range fields {
		set = append(set, field.column+" = ?")
		args = append(args, field.value)
	}
	set = append(set, "version = version + 1", "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id.String(), version)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ? AND version = ?",
		desc.table, strings.Join(set, ", "), desc.primaryKey)
	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: updating %s: %v", store.ErrPersistence, desc.table, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: checking rows affected: %v", store.ErrPersistence, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s %s", store.ErrConcurrentModification, desc.table, id)
	}

	return nil
}

// requireExisting is the update precondition: the target must already have an
// identity.
func requireExisting(table string, id uuid.UUID) error {
	if id == uuid.Nil {
		return fmt.Errorf("%w: %s resource does not exist", store.ErrValidation, table)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
