package service_test

import (
	"context"

	"github.com/google/uuid"
	"github.com/iyhunko/catalog-service/internal/model"
	"github.com/iyhunko/catalog-service/internal/repository"
	"github.com/iyhunko/catalog-service/internal/sqs"
	"github.com/stretchr/testify/mock"
)

// MockStore is a mock implementation of repository.ProductStore
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Create(ctx context.Context, product *model.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockStore) Update(ctx context.Context, product *model.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockStore) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStore) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return productResult(m.Called(ctx, id))
}

func (m *MockStore) FindBySlug(ctx context.Context, slug string) (*model.Product, error) {
	return productResult(m.Called(ctx, slug))
}

func (m *MockStore) FindByName(ctx context.Context, name string) (*model.Product, error) {
	return productResult(m.Called(ctx, name))
}

func (m *MockStore) List(ctx context.Context, filter repository.ListFilter) ([]*model.Product, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Product), args.Error(1)
}

func (m *MockStore) Search(ctx context.Context, query repository.SearchQuery) ([]*model.Product, int64, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*model.Product), args.Get(1).(int64), args.Error(2)
}

func (m *MockStore) DistinctCategories(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func productResult(args mock.Arguments) (*model.Product, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

// MockPublisher is a mock implementation of service.EventPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishCatalogMessage(ctx context.Context, msg sqs.CatalogMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// MockCache is a mock implementation of service.CategoryCache
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context) ([]string, bool, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]string), args.Bool(1), args.Error(2)
}

func (m *MockCache) Set(ctx context.Context, categories []string) error {
	args := m.Called(ctx, categories)
	return args.Error(0)
}

func (m *MockCache) Invalidate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockEventStore is a mock implementation of repository.EventStore
type MockEventStore struct {
	mock.Mock
}

func (m *MockEventStore) Create(ctx context.Context, event *model.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventStore) ListPending(ctx context.Context, limit int) ([]*model.Event, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Event), args.Error(1)
}

func (m *MockEventStore) UpdateStatus(ctx context.Context, eventID uuid.UUID, status model.EventStatus) error {
	args := m.Called(ctx, eventID, status)
	return args.Error(0)
}

func (m *MockEventStore) RecordFailure(ctx context.Context, eventID uuid.UUID, maxAttempts int) (model.EventStatus, error) {
	args := m.Called(ctx, eventID, maxAttempts)
	return args.Get(0).(model.EventStatus), args.Error(1)
}

func actionIs(action string) any {
	return mock.MatchedBy(func(msg sqs.CatalogMessage) bool { return msg.Action == action })
}

func newProduct(name string) *model.Product {
	p := &model.Product{MainCategory: model.CategoryKeyboards, SubCategory: "mech_wired", Price: 120, InStock: 4}
	p.SetName(name)
	p.InitMeta()
	return p
}

func reviewsBy(user string, ratings ...int) []model.Review {
	reviews := make([]model.Review, 0, len(ratings))
	for _, r := range ratings {
		reviews = append(reviews, model.Review{ID: uuid.New(), User: user, Name: user, Rating: r})
	}
	return reviews
}

// FakeTransactor hands its stores to fn and counts the transactions that committed.
type FakeTransactor struct {
	products  repository.ProductStore
	events    repository.EventStore
	committed int
}

func (f *FakeTransactor) WithinTransaction(_ context.Context, fn func(products repository.ProductStore, events repository.EventStore) error) error {
	if err := fn(f.products, f.events); err != nil {
		return err
	}
	f.committed++
	return nil
}
