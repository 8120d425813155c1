package service

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"github.com/iyhunko/catalog-service/internal/auth"
	"github.com/iyhunko/catalog-service/internal/metrics"
	"github.com/iyhunko/catalog-service/internal/model"
	"github.com/iyhunko/catalog-service/internal/repository"
	"github.com/iyhunko/catalog-service/internal/sqs"
)

// maxWriteAttempts bounds the read-check-write loop of conditional updates.
const maxWriteAttempts = 3

// CategoryCache caches the distinct main category list.
type CategoryCache interface {
	Get(ctx context.Context) ([]string, bool, error)
	Set(ctx context.Context, categories []string) error
	Invalidate(ctx context.Context) error
}

// Transactor runs fn against stores bound to one transaction.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(products repository.ProductStore, events repository.EventStore) error) error
}

// ReviewInput is a review submission.
type ReviewInput struct {
	Rating  int
	Comment string
}

// CatalogService implements the product catalog operations.
type CatalogService struct {
	store      repository.ProductStore
	events     EventPublisher
	tx         Transactor
	categories CategoryCache
}

// NewCatalogService creates a CatalogService. events and categories may be nil.
func NewCatalogService(store repository.ProductStore, events EventPublisher, categories CategoryCache) *CatalogService {
	return &CatalogService{
		store:      store,
		events:     events,
		categories: categories,
	}
}

// NewTransactionalCatalogService creates a CatalogService that records every catalog
// event in the outbox within the same transaction as the product write.
func NewTransactionalCatalogService(store repository.ProductStore, tx Transactor, categories CategoryCache) *CatalogService {
	return &CatalogService{
		store:      store,
		tx:         tx,
		categories: categories,
	}
}

// ListAll returns every product. An empty catalog is reported as not found.
func (s *CatalogService) ListAll(ctx context.Context) ([]*model.Product, error) {
	return s.list(ctx, repository.ListFilter{})
}

// ListByCategory returns the products whose main category equals category.
func (s *CatalogService) ListByCategory(ctx context.Context, category string) ([]*model.Product, error) {
	return s.list(ctx, repository.ListFilter{MainCategory: category})
}

// ListByCategoryAndSubcategory returns the products of category whose subcategory contains subcategory, ignoring case.
func (s *CatalogService) ListByCategoryAndSubcategory(ctx context.Context, category, subcategory string) ([]*model.Product, error) {
	return s.list(ctx, repository.ListFilter{MainCategory: category, SubCategory: subcategory})
}

func (s *CatalogService) list(ctx context.Context, filter repository.ListFilter) ([]*model.Product, error) {
	products, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, mapStoreError(err, "list products")
	}
	if len(products) == 0 {
		return nil, notFound("No products found")
	}
	return products, nil
}

// ListCategories returns the distinct main categories ordered by ascending length.
// Categories of equal length keep the store order.
func (s *CatalogService) ListCategories(ctx context.Context) ([]string, error) {
	if s.categories != nil {
		cached, ok, err := s.categories.Get(ctx)
		if err != nil {
			slog.Error("Failed to read category cache", slog.Any("err", err))
		}
		if ok {
			return cached, nil
		}
	}

	categories, err := s.store.DistinctCategories(ctx)
	if err != nil {
		return nil, mapStoreError(err, "list categories")
	}
	slices.SortStableFunc(categories, func(a, b string) int {
		return cmp.Compare(len(a), len(b))
	})

	if s.categories != nil {
		if err := s.categories.Set(ctx, categories); err != nil {
			slog.Error("Failed to write category cache", slog.Any("err", err))
		}
	}
	return categories, nil
}

// Search returns one page of products matching params.
func (s *CatalogService) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	query, err := ParseSearchParams(params)
	if err != nil {
		return nil, err
	}

	products, total, err := s.store.Search(ctx, query)
	if err != nil {
		return nil, mapStoreError(err, "search products")
	}

	return &SearchResult{
		Products: products,
		Total:    total,
		Page:     query.Page.Number,
		Pages:    query.Page.TotalPages(total),
	}, nil
}

// GetBySlug returns the product with the given slug.
func (s *CatalogService) GetBySlug(ctx context.Context, slug string) (*model.Product, error) {
	product, err := s.store.FindBySlug(ctx, slug)
	if err != nil {
		return nil, mapStoreError(err, "find product")
	}
	return product, nil
}

// GetByID returns the product with the given id.
func (s *CatalogService) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	product, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "find product")
	}
	return product, nil
}

// AddReview appends a review by principal to the product with the given slug and
// returns the updated product with the number of reviews the principal had before.
// The write is conditional on the product version, so the per-user limit holds
// under concurrent submissions.
func (s *CatalogService) AddReview(ctx context.Context, slug string, principal auth.Principal, input ReviewInput) (*model.Product, int, error) {
	review := model.Review{
		Name:    principal.Name,
		User:    principal.ID,
		Rating:  input.Rating,
		Comment: input.Comment,
	}
	if err := review.Validate(); err != nil {
		metrics.ReviewsSubmitted.WithLabelValues(metrics.ReviewInvalid).Inc()
		return nil, 0, invalidInput("%s", err.Error())
	}

	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		product, err := s.store.FindBySlug(ctx, slug)
		if err != nil {
			return nil, 0, mapStoreError(err, "find product")
		}

		prior := product.ReviewsBy(principal.ID)
		if prior >= model.MaxReviewsPerUser {
			metrics.ReviewsSubmitted.WithLabelValues(metrics.ReviewLimitReached).Inc()
			return nil, prior, conflict("Product already reviewed %d times", model.MaxReviewsPerUser)
		}

		review.InitMeta()
		product.AddReview(review)

		err = s.commit(ctx, model.EventProductReviewed, product, func(store repository.ProductStore) error {
			return store.Update(ctx, product)
		})
		if errors.Is(err, repository.ErrVersionConflict) {
			metrics.WriteConflicts.WithLabelValues("review").Inc()
			slog.Debug("Review write lost a race, retrying", slog.String("slug", slug), slog.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, 0, mapStoreError(err, "save review")
		}

		metrics.ReviewsSubmitted.WithLabelValues(metrics.ReviewAccepted).Inc()
		return product, prior, nil
	}

	return nil, 0, conflict("Product was modified concurrently, please retry")
}

// Create stores a new product. Derived fields of the input are ignored.
func (s *CatalogService) Create(ctx context.Context, product *model.Product) (*model.Product, error) {
	if product == nil {
		return nil, invalidInput("Request body is missing")
	}

	product.ID = uuid.Nil
	product.Reviews = nil
	product.RecomputeRating()
	product.SetName(product.Name)
	if err := product.Validate(); err != nil {
		return nil, invalidInput("%s", err.Error())
	}

	if err := s.ensureNameFree(ctx, product.Name, uuid.Nil); err != nil {
		return nil, err
	}

	err := s.commit(ctx, model.EventProductCreated, product, func(store repository.ProductStore) error {
		return store.Create(ctx, product)
	})
	if err != nil {
		return nil, mapStoreError(err, "create product")
	}

	metrics.ProductsCreated.Inc()
	s.invalidateCategories(ctx)
	return product, nil
}

// Update applies patch to the product with the given id. A rename re-derives the slug
// and must not collide with another product's name.
func (s *CatalogService) Update(ctx context.Context, id uuid.UUID, patch model.ProductPatch) (*model.Product, error) {
	if patch.IsEmpty() {
		return nil, invalidInput("Request body is missing")
	}

	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		product, err := s.store.FindByID(ctx, id)
		if err != nil {
			return nil, mapStoreError(err, "find product")
		}

		if name, ok := patch.RenamesTo(product); ok {
			if err := s.ensureNameFree(ctx, name, id); err != nil {
				return nil, err
			}
		}

		patch.Apply(product)
		product.RecomputeRating()
		if err := product.Validate(); err != nil {
			return nil, invalidInput("%s", err.Error())
		}

		err = s.commit(ctx, model.EventProductUpdated, product, func(store repository.ProductStore) error {
			return store.Update(ctx, product)
		})
		if errors.Is(err, repository.ErrVersionConflict) {
			metrics.WriteConflicts.WithLabelValues("update").Inc()
			slog.Debug("Product update lost a race, retrying", slog.String("product_id", id.String()), slog.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, mapStoreError(err, "update product")
		}

		metrics.ProductsUpdated.Inc()
		s.invalidateCategories(ctx)
		return product, nil
	}

	return nil, conflict("Product was modified concurrently, please retry")
}

// Delete permanently removes the product with the given id and returns the removed snapshot.
func (s *CatalogService) Delete(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	product, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "find product")
	}

	err = s.commit(ctx, model.EventProductDeleted, product, func(store repository.ProductStore) error {
		return store.Delete(ctx, id)
	})
	if err != nil {
		return nil, mapStoreError(err, "delete product")
	}

	metrics.ProductsDeleted.Inc()
	s.invalidateCategories(ctx)
	return product, nil
}

// ensureNameFree fails with a conflict if a product other than self already uses name.
func (s *CatalogService) ensureNameFree(ctx context.Context, name string, self uuid.UUID) error {
	existing, err := s.store.FindByName(ctx, name)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return mapStoreError(err, "find product")
	}
	if existing.ID != self {
		return conflict("Product with this name already exists")
	}
	return nil
}

// commit runs write and emits the matching catalog event. With a Transactor, the event
// is stored in the outbox inside the write's transaction and a failure to store it
// rolls the write back. Without one, the event is published after the write succeeds.
func (s *CatalogService) commit(ctx context.Context, action string, product *model.Product, write func(store repository.ProductStore) error) error {
	if s.tx == nil {
		if err := write(s.store); err != nil {
			return err
		}
		s.publish(ctx, action, product)
		return nil
	}

	return s.tx.WithinTransaction(ctx, func(store repository.ProductStore, events repository.EventStore) error {
		if err := write(store); err != nil {
			return err
		}
		return NewOutboxPublisher(events).PublishCatalogMessage(ctx, sqs.NewCatalogMessage(action, product))
	})
}

// publish emits a catalog event. Failures are logged and never fail the operation.
func (s *CatalogService) publish(ctx context.Context, action string, product *model.Product) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishCatalogMessage(ctx, sqs.NewCatalogMessage(action, product)); err != nil {
		slog.Error("Failed to publish catalog event", slog.Any("err", err),
			slog.String("action", action), slog.String("product_id", product.ID.String()))
	}
}

func (s *CatalogService) invalidateCategories(ctx context.Context) {
	if s.categories == nil {
		return
	}
	if err := s.categories.Invalidate(ctx); err != nil {
		slog.Error("Failed to invalidate category cache", slog.Any("err", err))
	}
}
