package service_test

import (
	"math"
	"testing"

	"github.com/iyhunko/catalog-service/internal/repository"
	"github.com/iyhunko/catalog-service/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSearchParams(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		query, err := service.ParseSearchParams(service.SearchParams{})
		require.NoError(t, err)
		assert.Equal(t, repository.NewSearchQuery(), query)
	})

	t.Run("all sentinel disables filters", func(t *testing.T) {
		query, err := service.ParseSearchParams(service.SearchParams{
			Query: "all", MainCategory: "all", Price: "all", Rating: "all",
		})
		require.NoError(t, err)
		assert.Equal(t, repository.NewSearchQuery(), query)
	})

	t.Run("full query", func(t *testing.T) {
		query, err := service.ParseSearchParams(service.SearchParams{
			Query:        " wire ",
			MainCategory: "mice",
			Price:        "10-50",
			Rating:       "3.5",
			Order:        "toprated",
			Page:         "3",
			PageSize:     "12",
		})
		require.NoError(t, err)

		assert.Equal(t, "wire", query.Text)
		assert.Equal(t, "mice", query.MainCategory)
		require.NotNil(t, query.MinRating)
		assert.Equal(t, 3.5, *query.MinRating)
		assert.Equal(t, &repository.PriceRange{Min: 10, Max: 50}, query.Price)
		assert.Equal(t, repository.SortTopRated, query.Order)
		assert.Equal(t, repository.Page{Number: 3, Size: 12}, query.Page)
	})

	t.Run("explicit bounds override the legacy range", func(t *testing.T) {
		query, err := service.ParseSearchParams(service.SearchParams{Price: "10-50", PriceMin: "20"})
		require.NoError(t, err)
		assert.Equal(t, &repository.PriceRange{Min: 20, Max: math.MaxFloat64}, query.Price)

		query, err = service.ParseSearchParams(service.SearchParams{PriceMax: "30"})
		require.NoError(t, err)
		assert.Equal(t, &repository.PriceRange{Min: 0, Max: 30}, query.Price)
	})

	t.Run("unknown order falls back to default", func(t *testing.T) {
		query, err := service.ParseSearchParams(service.SearchParams{Order: "cheapest"})
		require.NoError(t, err)
		assert.Equal(t, repository.SortDefault, query.Order)
	})

	t.Run("page size is capped", func(t *testing.T) {
		query, err := service.ParseSearchParams(service.SearchParams{PageSize: "5000"})
		require.NoError(t, err)
		assert.Equal(t, repository.MaxPageSize, query.Page.Size)
	})

	invalid := map[string]service.SearchParams{
		"price without dash":    {Price: "10"},
		"non-numeric price":     {Price: "a-b"},
		"inverted price":        {Price: "50-10"},
		"infinite price":        {Price: "0-Inf"},
		"non-numeric priceMin":  {PriceMin: "x"},
		"priceMin over max":     {PriceMin: "9", PriceMax: "1"},
		"non-numeric rating":    {Rating: "good"},
		"NaN rating":            {Rating: "NaN"},
		"zero page":             {Page: "0"},
		"negative page size":    {PageSize: "-9"},
		"non-numeric page size": {PageSize: "nine"},
		"page offset overflows": {Page: "150000000000000000", PageSize: "100"},
	}
	for name, params := range invalid {
		t.Run(name, func(t *testing.T) {
			_, err := service.ParseSearchParams(params)
			assert.ErrorIs(t, err, service.ErrInvalidInput)
		})
	}
}
