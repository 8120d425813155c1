package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/iyhunko/catalog-service/internal/model"
)

var (
	// ErrNotFound is returned when no product matches the lookup.
	ErrNotFound = errors.New("resource not found")

	// ErrVersionConflict is returned when a conditional write lost against a concurrent one.
	ErrVersionConflict = errors.New("resource was modified concurrently")
)

// ProductStore persists products and their embedded reviews.
type ProductStore interface {
	Create(ctx context.Context, product *model.Product) error
	// Update replaces the stored product if its version still equals product.Version,
	// then increments product.Version. A stale version yields ErrVersionConflict.
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindBySlug(ctx context.Context, slug string) (*model.Product, error)
	FindByName(ctx context.Context, name string) (*model.Product, error)
	List(ctx context.Context, filter ListFilter) ([]*model.Product, error)
	Search(ctx context.Context, query SearchQuery) ([]*model.Product, int64, error)
	DistinctCategories(ctx context.Context) ([]string, error)
}

// EventStore persists outbox events.
type EventStore interface {
	Create(ctx context.Context, event *model.Event) error
	ListPending(ctx context.Context, limit int) ([]*model.Event, error)
	UpdateStatus(ctx context.Context, eventID uuid.UUID, status model.EventStatus) error
	// RecordFailure counts a failed delivery and marks the event failed once it has
	// failed maxAttempts times. It returns the resulting status.
	RecordFailure(ctx context.Context, eventID uuid.UUID, maxAttempts int) (model.EventStatus, error)
}

// UniqueConstraintError represents a unique constraint violation reported by the store.
type UniqueConstraintError struct {
	Detail string
}

func (u *UniqueConstraintError) Error() string {
	return "resource must be unique: " + u.Detail
}

// ValidationError represents a write the store rejected because a field violates a constraint.
type ValidationError struct {
	Detail string
}

func (v *ValidationError) Error() string {
	return "resource is invalid: " + v.Detail
}
