package mongo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/iyhunko/catalog-service/internal/model"
	"github.com/iyhunko/catalog-service/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type reviewDocument struct {
	ID        string    `bson:"id"`
	Name      string    `bson:"name"`
	User      string    `bson:"user"`
	Rating    int       `bson:"rating"`
	Comment   string    `bson:"comment"`
	CreatedAt time.Time `bson:"created_at"`
}

// productDocument is the stored shape of a product. The UUID is kept as its string form in _id.
type productDocument struct {
	ID              string           `bson:"_id"`
	Name            string           `bson:"name"`
	Slug            string           `bson:"slug"`
	Vendor          string           `bson:"vendor"`
	Price           float64          `bson:"price"`
	Description     string           `bson:"description"`
	Image           string           `bson:"image"`
	MainCategory    string           `bson:"main_category"`
	SubCategory     string           `bson:"sub_category"`
	InStock         int              `bson:"in_stock"`
	Rating          float64          `bson:"rating"`
	NumberOfReviews int              `bson:"number_of_reviews"`
	Featured        bool             `bson:"featured"`
	Reviews         []reviewDocument `bson:"reviews"`
	Version         int64            `bson:"version"`
	CreatedAt       time.Time        `bson:"created_at"`
	UpdatedAt       time.Time        `bson:"updated_at"`
}

func toDocument(p *model.Product) productDocument {
	reviews := make([]reviewDocument, 0, len(p.Reviews))
	for _, r := range p.Reviews {
		reviews = append(reviews, reviewDocument{
			ID:        r.ID.String(),
			Name:      r.Name,
			User:      r.User,
			Rating:    r.Rating,
			Comment:   r.Comment,
			CreatedAt: r.CreatedAt,
		})
	}
	return productDocument{
		ID:              p.ID.String(),
		Name:            p.Name,
		Slug:            p.Slug,
		Vendor:          p.Vendor,
		Price:           p.Price,
		Description:     p.Description,
		Image:           p.Image,
		MainCategory:    p.MainCategory,
		SubCategory:     p.SubCategory,
		InStock:         p.InStock,
		Rating:          p.Rating,
		NumberOfReviews: p.NumberOfReviews,
		Featured:        p.Featured,
		Reviews:         reviews,
		Version:         p.Version,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func (d productDocument) toModel() (*model.Product, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse product id %q: %w", d.ID, err)
	}
	reviews := make([]model.Review, 0, len(d.Reviews))
	for _, r := range d.Reviews {
		reviewID, err := uuid.Parse(r.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to parse review id %q: %w", r.ID, err)
		}
		reviews = append(reviews, model.Review{
			ID:        reviewID,
			Name:      r.Name,
			User:      r.User,
			Rating:    r.Rating,
			Comment:   r.Comment,
			CreatedAt: r.CreatedAt.UTC(),
		})
	}
	return &model.Product{
		ID:              id,
		Name:            d.Name,
		Slug:            d.Slug,
		Vendor:          d.Vendor,
		Price:           d.Price,
		Description:     d.Description,
		Image:           d.Image,
		MainCategory:    d.MainCategory,
		SubCategory:     d.SubCategory,
		InStock:         d.InStock,
		Rating:          d.Rating,
		NumberOfReviews: d.NumberOfReviews,
		Featured:        d.Featured,
		Reviews:         reviews,
		Version:         d.Version,
		CreatedAt:       d.CreatedAt.UTC(),
		UpdatedAt:       d.UpdatedAt.UTC(),
	}, nil
}

// ProductRepository implements repository.ProductStore on a MongoDB collection.
type ProductRepository struct {
	collection *mongo.Collection
}

// NewProductRepository creates a new ProductRepository on the products collection of db.
func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{collection: db.Collection(productsCollection)}
}

func mapWriteError(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return &repository.UniqueConstraintError{Detail: err.Error()}
	}
	return err
}

// Create inserts a new product document.
func (r *ProductRepository) Create(ctx context.Context, product *model.Product) error {
	if product.ID == uuid.Nil {
		product.InitMeta()
	}

	if _, err := r.collection.InsertOne(ctx, toDocument(product)); err != nil {
		return fmt.Errorf("failed to insert product: %w", mapWriteError(err))
	}
	return nil
}

// Update replaces the document if its stored version matches product.Version.
func (r *ProductRepository) Update(ctx context.Context, product *model.Product) error {
	next := *product
	next.Version = product.Version + 1
	next.UpdatedAt = time.Now().UTC()

	filter := bson.D{{Key: "_id", Value: product.ID.String()}, {Key: "version", Value: product.Version}}
	result, err := r.collection.ReplaceOne(ctx, filter, toDocument(&next))
	if err != nil {
		return fmt.Errorf("failed to update product: %w", mapWriteError(err))
	}

	if result.MatchedCount == 0 {
		n, err := r.collection.CountDocuments(ctx, bson.D{{Key: "_id", Value: product.ID.String()}})
		if err != nil {
			return fmt.Errorf("failed to query product: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("product not found: %w", repository.ErrNotFound)
		}
		return fmt.Errorf("product %s at version %d: %w", product.ID, product.Version, repository.ErrVersionConflict)
	}

	product.Version = next.Version
	product.UpdatedAt = next.UpdatedAt
	return nil
}

// Delete deletes a product by ID.
func (r *ProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.collection.DeleteOne(ctx, bson.D{{Key: "_id", Value: id.String()}})
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("product not found: %w", repository.ErrNotFound)
	}
	return nil
}

// FindByID retrieves a single product by ID.
func (r *ProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id.String()}})
}

// FindBySlug retrieves a single product by slug.
func (r *ProductRepository) FindBySlug(ctx context.Context, slug string) (*model.Product, error) {
	return r.findOne(ctx, bson.D{{Key: "slug", Value: slug}})
}

// FindByName retrieves a single product by its exact name.
func (r *ProductRepository) FindByName(ctx context.Context, name string) (*model.Product, error) {
	return r.findOne(ctx, bson.D{{Key: "name", Value: name}})
}

func (r *ProductRepository) findOne(ctx context.Context, filter bson.D) (*model.Product, error) {
	var doc productDocument
	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("product not found: %w", repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query product: %w", err)
	}
	return doc.toModel()
}

// List retrieves products matching the category filter in insertion order.
func (r *ProductRepository) List(ctx context.Context, filter repository.ListFilter) ([]*model.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	return r.find(ctx, listFilter(filter), opts)
}

// Search retrieves one page of products matching the query together with the total number of matches.
func (r *ProductRepository) Search(ctx context.Context, query repository.SearchQuery) ([]*model.Product, int64, error) {
	filter := searchFilter(query)
	opts := options.Find().
		SetSort(searchSort(query.Order)).
		SetSkip(int64(query.Page.Skip())).
		SetLimit(int64(query.Page.Limit()))

	products, err := r.find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	return products, total, nil
}

// DistinctCategories returns every main category in use, alphabetically.
func (r *ProductRepository) DistinctCategories(ctx context.Context) ([]string, error) {
	values, err := r.collection.Distinct(ctx, "main_category", bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}

	categories := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			categories = append(categories, s)
		}
	}
	sort.Strings(categories)
	return categories, nil
}

func (r *ProductRepository) find(ctx context.Context, filter bson.D, opts *options.FindOptions) ([]*model.Product, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer cursor.Close(ctx)

	products := []*model.Product{}
	for cursor.Next(ctx) {
		var doc productDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode product: %w", err)
		}
		product, err := doc.toModel()
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cursor: %w", err)
	}

	return products, nil
}
