package sql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iyhunko/catalog-service/internal/model"
	"github.com/iyhunko/catalog-service/internal/repository"
)

const productColumns = `id, name, slug, vendor, price, description, image, main_category, sub_category, ` +
	`in_stock, rating, number_of_reviews, featured, reviews, version, created_at, updated_at`

var sortColumns = map[repository.QueryField]string{
	repository.IDField:        "id",
	repository.PriceField:     "price",
	repository.RatingField:    "rating",
	repository.FeaturedField:  "featured",
	repository.CreatedAtField: "created_at",
}

// ProductRepository implements repository.ProductStore on PostgreSQL.
// Reviews are embedded in the products row as a JSONB array.
type ProductRepository struct {
	db dbExecutor
}

// NewProductRepository creates a new ProductRepository instance.
func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*model.Product, error) {
	var (
		product model.Product
		reviews []byte
	)
	err := row.Scan(
		&product.ID, &product.Name, &product.Slug, &product.Vendor, &product.Price, &product.Description,
		&product.Image, &product.MainCategory, &product.SubCategory, &product.InStock, &product.Rating,
		&product.NumberOfReviews, &product.Featured, &reviews, &product.Version, &product.CreatedAt, &product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	product.Reviews = []model.Review{}
	if len(reviews) > 0 {
		if err := json.Unmarshal(reviews, &product.Reviews); err != nil {
			return nil, fmt.Errorf("failed to decode reviews: %w", err)
		}
	}
	return &product, nil
}

func encodeReviews(reviews []model.Review) ([]byte, error) {
	if reviews == nil {
		reviews = []model.Review{}
	}
	data, err := json.Marshal(reviews)
	if err != nil {
		return nil, fmt.Errorf("failed to encode reviews: %w", err)
	}
	return data, nil
}

// Create inserts a new product into the database.
func (r *ProductRepository) Create(ctx context.Context, product *model.Product) error {
	// Only initialize metadata if not already set
	if product.ID == uuid.Nil {
		product.InitMeta()
	}

	reviews, err := encodeReviews(product.Reviews)
	if err != nil {
		return err
	}

	query := `INSERT INTO products (` + productColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx,
		product.ID, product.Name, product.Slug, product.Vendor, product.Price, product.Description,
		product.Image, product.MainCategory, product.SubCategory, product.InStock, product.Rating,
		product.NumberOfReviews, product.Featured, reviews, product.Version, product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", mapWriteError(err))
	}

	return nil
}

// Update overwrites the product row if its stored version matches product.Version.
func (r *ProductRepository) Update(ctx context.Context, product *model.Product) error {
	reviews, err := encodeReviews(product.Reviews)
	if err != nil {
		return err
	}

	query := `UPDATE products SET name = $1, slug = $2, vendor = $3, price = $4, description = $5, image = $6,
	          main_category = $7, sub_category = $8, in_stock = $9, rating = $10, number_of_reviews = $11,
	          featured = $12, reviews = $13, updated_at = $14, version = version + 1
	          WHERE id = $15 AND version = $16`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare update statement: %w", err)
	}
	defer stmt.Close()

	updatedAt := time.Now().UTC()
	result, err := stmt.ExecContext(ctx,
		product.Name, product.Slug, product.Vendor, product.Price, product.Description, product.Image,
		product.MainCategory, product.SubCategory, product.InStock, product.Rating, product.NumberOfReviews,
		product.Featured, reviews, updatedAt, product.ID, product.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", mapWriteError(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		exists, err := r.exists(ctx, product.ID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("product not found: %w", repository.ErrNotFound)
		}
		return fmt.Errorf("product %s at version %d: %w", product.ID, product.Version, repository.ErrVersionConflict)
	}

	product.Version++
	product.UpdatedAt = updatedAt
	return nil
}

func (r *ProductRepository) exists(ctx context.Context, id uuid.UUID) (bool, error) {
	stmt, err := r.db.PrepareContext(ctx, `SELECT 1 FROM products WHERE id = $1`)
	if err != nil {
		return false, fmt.Errorf("failed to prepare select statement: %w", err)
	}
	defer stmt.Close()

	var one int
	err = stmt.QueryRowContext(ctx, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query product: %w", err)
	}
	return true, nil
}

// Delete deletes a product by ID.
func (r *ProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM products WHERE id = $1`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare delete statement: %w", err)
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("product not found: %w", repository.ErrNotFound)
	}

	return nil
}

// FindByID retrieves a single product by ID.
func (r *ProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return r.findOne(ctx, "id", id)
}

// FindBySlug retrieves a single product by slug.
func (r *ProductRepository) FindBySlug(ctx context.Context, slug string) (*model.Product, error) {
	return r.findOne(ctx, "slug", slug)
}

// FindByName retrieves a single product by its exact, case-sensitive name.
func (r *ProductRepository) FindByName(ctx context.Context, name string) (*model.Product, error) {
	return r.findOne(ctx, "name", name)
}

func (r *ProductRepository) findOne(ctx context.Context, column string, value any) (*model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE ` + column + ` = $1`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare select statement: %w", err)
	}
	defer stmt.Close()

	product, err := scanProduct(stmt.QueryRowContext(ctx, value))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("product not found: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	return product, nil
}

// List retrieves products matching the category filter in insertion order.
func (r *ProductRepository) List(ctx context.Context, filter repository.ListFilter) ([]*model.Product, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString("SELECT " + productColumns + " FROM products WHERE 1=1")

	var args []any
	if filter.MainCategory != "" {
		args = append(args, filter.MainCategory)
		fmt.Fprintf(&queryBuilder, " AND main_category = $%d", len(args))
	}
	if filter.SubCategory != "" {
		args = append(args, containsPattern(filter.SubCategory))
		fmt.Fprintf(&queryBuilder, " AND sub_category ILIKE $%d", len(args))
	}
	queryBuilder.WriteString(" ORDER BY id ASC")

	return r.query(ctx, queryBuilder.String(), args...)
}

// Search retrieves one page of products matching the query together with the total number of matches.
func (r *ProductRepository) Search(ctx context.Context, query repository.SearchQuery) ([]*model.Product, int64, error) {
	where, args := buildSearchWhere(query)

	pageArgs := append(append([]any{}, args...), query.Page.Limit(), query.Page.Skip())
	selectQuery := fmt.Sprintf("SELECT %s FROM products%s ORDER BY %s LIMIT $%d OFFSET $%d",
		productColumns, where, buildOrderBy(query.Order), len(args)+1, len(args)+2)

	products, err := r.query(ctx, selectQuery, pageArgs...)
	if err != nil {
		return nil, 0, err
	}

	stmt, err := r.db.PrepareContext(ctx, "SELECT COUNT(*) FROM products"+where)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to prepare count statement: %w", err)
	}
	defer stmt.Close()

	var total int64
	if err := stmt.QueryRowContext(ctx, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	return products, total, nil
}

// DistinctCategories returns every main category in use, alphabetically.
func (r *ProductRepository) DistinctCategories(ctx context.Context) ([]string, error) {
	stmt, err := r.db.PrepareContext(ctx, `SELECT DISTINCT main_category FROM products ORDER BY main_category`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare select statement: %w", err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := []string{}
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return categories, nil
}

func (r *ProductRepository) query(ctx context.Context, query string, args ...any) ([]*model.Product, error) {
	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare select statement: %w", err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []*model.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return products, nil
}

// buildSearchWhere renders the active search filters as a WHERE clause with positional arguments.
func buildSearchWhere(query repository.SearchQuery) (string, []any) {
	var (
		sb   strings.Builder
		args []any
	)
	next := func(v any) int {
		args = append(args, v)
		return len(args)
	}

	sb.WriteString(" WHERE 1=1")
	if query.Text != "" {
		n := next(containsPattern(query.Text))
		fmt.Fprintf(&sb, " AND (name ILIKE $%[1]d OR main_category ILIKE $%[1]d OR sub_category ILIKE $%[1]d)", n)
	}
	if query.MainCategory != "" {
		fmt.Fprintf(&sb, " AND main_category = $%d", next(query.MainCategory))
	}
	if query.MinRating != nil {
		fmt.Fprintf(&sb, " AND rating >= $%d", next(*query.MinRating))
	}
	if query.Price != nil {
		fmt.Fprintf(&sb, " AND price >= $%d", next(query.Price.Min))
		fmt.Fprintf(&sb, " AND price <= $%d", next(query.Price.Max))
	}
	return sb.String(), args
}

func buildOrderBy(order repository.SortOrder) string {
	keys := order.Keys()
	terms := make([]string, 0, len(keys))
	for _, key := range keys {
		direction := "ASC"
		if key.Descending {
			direction = "DESC"
		}
		terms = append(terms, sortColumns[key.Field]+" "+direction)
	}
	return strings.Join(terms, ", ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE pattern matching s literally anywhere in the value.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
