package sql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/iyhunko/catalog-service/internal/repository"
)

// TransactionalRepository runs product writes and their outbox events in a single transaction.
type TransactionalRepository struct {
	db *sql.DB
}

// NewTransactionalRepository creates a new TransactionalRepository.
func NewTransactionalRepository(db *sql.DB) *TransactionalRepository {
	return &TransactionalRepository{db: db}
}

// WithinTransaction calls fn with repositories bound to one transaction. The transaction
// commits when fn returns nil and rolls back otherwise.
func (tr *TransactionalRepository) WithinTransaction(ctx context.Context, fn func(products repository.ProductStore, events repository.EventStore) error) error {
	tx, err := tr.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&ProductRepository{db: tx}, &EventRepository{db: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.Error("failed to roll back transaction", slog.Any("err", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
