package sql

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/iyhunko/catalog-service/internal/model"
	"github.com/iyhunko/catalog-service/internal/repository"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var productRowColumns = []string{
	"id", "name", "slug", "vendor", "price", "description", "image", "main_category", "sub_category",
	"in_stock", "rating", "number_of_reviews", "featured", "reviews", "version", "created_at", "updated_at",
}

func addProductRow(rows *sqlmock.Rows, id uuid.UUID, name string, price float64, reviews string) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(id.String(), name, "slug-"+id.String(), "Logitech", price, "desc", "img.png",
		model.CategoryMice, "wireless", 3, 4.5, 2, false, []byte(reviews), 1, now, now)
}

func TestProductRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewProductRepository(db)
	ctx := context.Background()

	t.Run("successful creation", func(t *testing.T) {
		product := &model.Product{Price: 99.99, MainCategory: model.CategoryKeyboards, SubCategory: "mech_wired", InStock: 5}
		product.SetName("Test Product")

		mock.ExpectPrepare("INSERT INTO products").
			ExpectExec().
			WithArgs(sqlmock.AnyArg(), "Test Product", "test-product", "", 99.99, "", "", model.CategoryKeyboards,
				"mech_wired", 5, 0.0, 0, false, []byte("[]"), int64(1), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		err := repo.Create(ctx, product)
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, product.ID)
		assert.False(t, product.CreatedAt.IsZero())
		assert.False(t, product.UpdatedAt.IsZero())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation", func(t *testing.T) {
		product := &model.Product{MainCategory: model.CategoryMice}
		product.SetName("Duplicate")

		mock.ExpectPrepare("INSERT INTO products").
			ExpectExec().
			WillReturnError(&pgconn.PgError{Code: pqUniqueViolationErrCode, Detail: "Key (name)=(Duplicate) already exists."})

		err := repo.Create(ctx, product)
		require.Error(t, err)

		var uniqueErr *repository.UniqueConstraintError
		require.True(t, errors.As(err, &uniqueErr))
		assert.Contains(t, uniqueErr.Detail, "Duplicate")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("check violation", func(t *testing.T) {
		product := &model.Product{MainCategory: model.CategoryMice, Price: -1}
		product.SetName("Negative")

		mock.ExpectPrepare("INSERT INTO products").
			ExpectExec().
			WillReturnError(&pgconn.PgError{Code: pqCheckViolationErrCode, ConstraintName: "products_price_check"})

		err := repo.Create(ctx, product)

		var validationErr *repository.ValidationError
		require.True(t, errors.As(err, &validationErr))
		assert.Equal(t, "products_price_check", validationErr.Detail)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestProductRepository_Update(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewProductRepository(db)
	ctx := context.Background()

	newProduct := func() *model.Product {
		p := &model.Product{MainCategory: model.CategoryHeadphones, Price: 150}
		p.SetName("HD 600")
		p.InitMeta()
		return p
	}

	t.Run("successful update bumps version", func(t *testing.T) {
		product := newProduct()

		mock.ExpectPrepare("UPDATE products SET").
			ExpectExec().
			WithArgs("HD 600", "hd-600", "", 150.0, "", "", model.CategoryHeadphones, "", 0, 0.0, 0, false,
				[]byte("[]"), sqlmock.AnyArg(), product.ID, int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Update(ctx, product)
		require.NoError(t, err)
		assert.Equal(t, int64(2), product.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale version", func(t *testing.T) {
		product := newProduct()

		mock.ExpectPrepare("UPDATE products SET").
			ExpectExec().
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectPrepare("SELECT 1 FROM products WHERE id = \\$1").
			ExpectQuery().
			WithArgs(product.ID).
			WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

		err := repo.Update(ctx, product)
		assert.ErrorIs(t, err, repository.ErrVersionConflict)
		assert.Equal(t, int64(1), product.Version, "version must not change on conflict")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("product not found", func(t *testing.T) {
		product := newProduct()

		mock.ExpectPrepare("UPDATE products SET").
			ExpectExec().
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectPrepare("SELECT 1 FROM products WHERE id = \\$1").
			ExpectQuery().
			WithArgs(product.ID).
			WillReturnError(sql.ErrNoRows)

		err := repo.Update(ctx, product)
		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestProductRepository_FindByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewProductRepository(db)
	ctx := context.Background()

	t.Run("successful find", func(t *testing.T) {
		id := uuid.New()
		reviewID := uuid.New()
		reviews := `[{"id":"` + reviewID.String() + `","name":"Ann","user":"u-1","rating":4,"comment":"ok","createdAt":"2024-01-02T03:04:05Z"}]`
		rows := addProductRow(sqlmock.NewRows(productRowColumns), id, "G Pro", 99.99, reviews)

		mock.ExpectPrepare("SELECT (.+) FROM products WHERE id = \\$1").
			ExpectQuery().
			WithArgs(id).
			WillReturnRows(rows)

		product, err := repo.FindByID(ctx, id)
		require.NoError(t, err)

		assert.Equal(t, id, product.ID)
		assert.Equal(t, "G Pro", product.Name)
		assert.Equal(t, 99.99, product.Price)
		assert.Equal(t, 3, product.InStock)
		require.Len(t, product.Reviews, 1)
		assert.Equal(t, reviewID, product.Reviews[0].ID)
		assert.Equal(t, "u-1", product.Reviews[0].User)
		assert.Equal(t, 4, product.Reviews[0].Rating)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("product not found", func(t *testing.T) {
		id := uuid.New()

		mock.ExpectPrepare("SELECT (.+) FROM products WHERE id = \\$1").
			ExpectQuery().
			WithArgs(id).
			WillReturnError(sql.ErrNoRows)

		product, err := repo.FindByID(ctx, id)
		require.Error(t, err)
		assert.Nil(t, product)
		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestProductRepository_FindBySlugAndName(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewProductRepository(db)
	ctx := context.Background()

	id := uuid.New()
	mock.ExpectPrepare("SELECT (.+) FROM products WHERE slug = \\$1").
		ExpectQuery().
		WithArgs("g-pro").
		WillReturnRows(addProductRow(sqlmock.NewRows(productRowColumns), id, "G Pro", 99.99, "[]"))
	mock.ExpectPrepare("SELECT (.+) FROM products WHERE name = \\$1").
		ExpectQuery().
		WithArgs("Missing").
		WillReturnError(sql.ErrNoRows)

	product, err := repo.FindBySlug(ctx, "g-pro")
	require.NoError(t, err)
	assert.Equal(t, id, product.ID)
	assert.Empty(t, product.Reviews)
	assert.NotNil(t, product.Reviews)

	_, err = repo.FindByName(ctx, "Missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewProductRepository(db)
	ctx := context.Background()

	t.Run("list without filters", func(t *testing.T) {
		rows := sqlmock.NewRows(productRowColumns)
		addProductRow(rows, uuid.New(), "Product 1", 10, "[]")
		addProductRow(rows, uuid.New(), "Product 2", 20, "[]")

		mock.ExpectPrepare("SELECT (.+) FROM products WHERE 1=1 ORDER BY id ASC").
			ExpectQuery().
			WillReturnRows(rows)

		result, err := repo.List(ctx, repository.ListFilter{})
		require.NoError(t, err)
		assert.Len(t, result, 2)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("list by category and subcategory", func(t *testing.T) {
		rows := addProductRow(sqlmock.NewRows(productRowColumns), uuid.New(), "Product 1", 10, "[]")

		mock.ExpectPrepare("SELECT (.+) FROM products WHERE 1=1 AND main_category = \\$1 AND sub_category ILIKE \\$2 ORDER BY id ASC").
			ExpectQuery().
			WithArgs(model.CategoryKeyboards, "%mech%").
			WillReturnRows(rows)

		result, err := repo.List(ctx, repository.ListFilter{MainCategory: model.CategoryKeyboards, SubCategory: "mech"})
		require.NoError(t, err)
		assert.Len(t, result, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestProductRepository_Search(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewProductRepository(db)
	ctx := context.Background()

	t.Run("second page with filters", func(t *testing.T) {
		minRating := 4.0
		query := repository.SearchQuery{
			Text:      "wire",
			MinRating: &minRating,
			Price:     &repository.PriceRange{Min: 10, Max: 50},
			Order:     repository.SortLowest,
			Page:      repository.Page{Number: 2, Size: 9},
		}

		rows := addProductRow(sqlmock.NewRows(productRowColumns), uuid.New(), "Product 1", 25, "[]")
		mock.ExpectPrepare("SELECT (.+) FROM products WHERE 1=1 AND \\(name ILIKE \\$1 (.+)\\) AND rating >= \\$2 AND price >= \\$3 AND price <= \\$4 ORDER BY price ASC, id DESC LIMIT \\$5 OFFSET \\$6").
			ExpectQuery().
			WithArgs("%wire%", 4.0, 10.0, 50.0, 9, 9).
			WillReturnRows(rows)
		mock.ExpectPrepare("SELECT COUNT\\(\\*\\) FROM products WHERE 1=1 AND").
			ExpectQuery().
			WithArgs("%wire%", 4.0, 10.0, 50.0).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(10))

		products, total, err := repo.Search(ctx, query)
		require.NoError(t, err)
		assert.Len(t, products, 1)
		assert.Equal(t, int64(10), total)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no filters uses default order", func(t *testing.T) {
		mock.ExpectPrepare("SELECT (.+) FROM products WHERE 1=1 ORDER BY id DESC LIMIT \\$1 OFFSET \\$2").
			ExpectQuery().
			WithArgs(9, 0).
			WillReturnRows(sqlmock.NewRows(productRowColumns))
		mock.ExpectPrepare("SELECT COUNT\\(\\*\\) FROM products WHERE 1=1$").
			ExpectQuery().
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		products, total, err := repo.Search(ctx, repository.NewSearchQuery())
		require.NoError(t, err)
		assert.Empty(t, products)
		assert.Equal(t, int64(0), total)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestProductRepository_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewProductRepository(db)
	ctx := context.Background()

	t.Run("successful delete", func(t *testing.T) {
		id := uuid.New()

		mock.ExpectPrepare("DELETE FROM products WHERE id").
			ExpectExec().
			WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Delete(ctx, id))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("product not found", func(t *testing.T) {
		id := uuid.New()

		mock.ExpectPrepare("DELETE FROM products WHERE id").
			ExpectExec().
			WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Delete(ctx, id)
		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestProductRepository_DistinctCategories(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewProductRepository(db)

	mock.ExpectPrepare("SELECT DISTINCT main_category FROM products").
		ExpectQuery().
		WillReturnRows(sqlmock.NewRows([]string{"main_category"}).AddRow("keyboards").AddRow("mice"))

	categories, err := repo.DistinctCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"keyboards", "mice"}, categories)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildSearchWhere(t *testing.T) {
	t.Run("no filters", func(t *testing.T) {
		where, args := buildSearchWhere(repository.NewSearchQuery())
		assert.Equal(t, " WHERE 1=1", where)
		assert.Empty(t, args)
	})

	t.Run("all filters", func(t *testing.T) {
		rating := 3.0
		where, args := buildSearchWhere(repository.SearchQuery{
			Text:         "50%_off",
			MainCategory: "mice",
			MinRating:    &rating,
			Price:        &repository.PriceRange{Min: 1, Max: 2},
		})

		assert.Equal(t, " WHERE 1=1"+
			" AND (name ILIKE $1 OR main_category ILIKE $1 OR sub_category ILIKE $1)"+
			" AND main_category = $2 AND rating >= $3 AND price >= $4 AND price <= $5", where)
		assert.Equal(t, []any{`%50\%\_off%`, "mice", 3.0, 1.0, 2.0}, args)
	})
}

func TestBuildOrderBy(t *testing.T) {
	assert.Equal(t, "featured DESC, id DESC", buildOrderBy(repository.SortFeatured))
	assert.Equal(t, "price ASC, id DESC", buildOrderBy(repository.SortLowest))
	assert.Equal(t, "price DESC, id DESC", buildOrderBy(repository.SortHighest))
	assert.Equal(t, "rating DESC, id DESC", buildOrderBy(repository.SortTopRated))
	assert.Equal(t, "created_at DESC, id DESC", buildOrderBy(repository.SortNewest))
	assert.Equal(t, "id DESC", buildOrderBy(repository.SortDefault))
}
