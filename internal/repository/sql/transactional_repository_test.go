package sql

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/iyhunko/catalog-service/internal/model"
	"github.com/iyhunko/catalog-service/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionalRepository_WithinTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	tr := NewTransactionalRepository(db)
	ctx := context.Background()

	newProduct := func() *model.Product {
		p := &model.Product{MainCategory: model.CategoryHeadphones, Price: 299}
		p.SetName("HD 600")
		return p
	}

	t.Run("commits product and event together", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectPrepare("INSERT INTO products").ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectPrepare("INSERT INTO events").ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		err := tr.WithinTransaction(ctx, func(products repository.ProductStore, events repository.EventStore) error {
			if err := products.Create(ctx, newProduct()); err != nil {
				return err
			}
			return events.Create(ctx, &model.Event{EventType: model.EventProductCreated, EventData: json.RawMessage(`{}`)})
		})

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when the event insert fails", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectPrepare("INSERT INTO products").ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectPrepare("INSERT INTO events").ExpectExec().WillReturnError(assert.AnError)
		mock.ExpectRollback()

		err := tr.WithinTransaction(ctx, func(products repository.ProductStore, events repository.EventStore) error {
			if err := products.Create(ctx, newProduct()); err != nil {
				return err
			}
			return events.Create(ctx, &model.Event{EventType: model.EventProductCreated, EventData: json.RawMessage(`{}`)})
		})

		assert.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin failure", func(t *testing.T) {
		mock.ExpectBegin().WillReturnError(assert.AnError)

		err := tr.WithinTransaction(ctx, func(repository.ProductStore, repository.EventStore) error {
			t.Fatal("fn must not run without a transaction")
			return nil
		})

		assert.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("commit failure", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectCommit().WillReturnError(assert.AnError)

		err := tr.WithinTransaction(ctx, func(repository.ProductStore, repository.EventStore) error { return nil })

		assert.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
