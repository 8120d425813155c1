package service

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/iyhunko/catalog-service/internal/model"
	"github.com/iyhunko/catalog-service/internal/repository"
)

// matchAll is the client sentinel meaning "do not filter on this field".
const matchAll = "all"

// SearchParams are the raw search inputs as received from the client.
type SearchParams struct {
	Query        string
	MainCategory string
	// Price is the legacy "min-max" range form.
	Price    string
	PriceMin string
	PriceMax string
	Rating   string
	Order    string
	Page     string
	PageSize string
}

// SearchResult is one page of search matches.
type SearchResult struct {
	Products []*model.Product
	Total    int64
	Page     int
	Pages    int
}

func active(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && v != matchAll
}

// ParseSearchParams validates raw inputs into a store query.
// priceMin/priceMax take precedence over the legacy price range when both are given.
func ParseSearchParams(params SearchParams) (repository.SearchQuery, error) {
	query := repository.NewSearchQuery()

	if active(params.Query) {
		query.Text = strings.TrimSpace(params.Query)
	}
	if active(params.MainCategory) {
		query.MainCategory = strings.TrimSpace(params.MainCategory)
	}

	if active(params.Rating) {
		rating, err := strconv.ParseFloat(strings.TrimSpace(params.Rating), 64)
		if err != nil || math.IsNaN(rating) {
			return query, invalidInput("rating must be a number")
		}
		query.MinRating = &rating
	}

	price, err := parsePrice(params)
	if err != nil {
		return query, err
	}
	query.Price = price

	query.Order = repository.ParseSortOrder(strings.TrimSpace(params.Order))

	number, err := parsePositive(params.Page, "page")
	if err != nil {
		return query, err
	}
	size, err := parsePositive(params.PageSize, "pageSize")
	if err != nil {
		return query, err
	}
	page, err := repository.NewPage(number, size)
	if err != nil {
		return query, invalidInput("%s", err.Error())
	}
	query.Page = page

	return query, nil
}

func parsePrice(params SearchParams) (*repository.PriceRange, error) {
	var r repository.PriceRange
	switch {
	case active(params.PriceMin) || active(params.PriceMax):
		r.Max = math.MaxFloat64
		if active(params.PriceMin) {
			v, err := parseNumber(params.PriceMin)
			if err != nil {
				return nil, invalidInput("priceMin must be a number")
			}
			r.Min = v
		}
		if active(params.PriceMax) {
			v, err := parseNumber(params.PriceMax)
			if err != nil {
				return nil, invalidInput("priceMax must be a number")
			}
			r.Max = v
		}
	case active(params.Price):
		lo, hi, ok := strings.Cut(strings.TrimSpace(params.Price), "-")
		if !ok {
			return nil, invalidInput("price must have the form min-max")
		}
		minPrice, errMin := parseNumber(lo)
		maxPrice, errMax := parseNumber(hi)
		if errMin != nil || errMax != nil {
			return nil, invalidInput("price must have the form min-max")
		}
		r.Min, r.Max = minPrice, maxPrice
	default:
		return nil, nil
	}

	if r.Min > r.Max {
		return nil, invalidInput("price minimum must not exceed maximum")
	}
	return &r, nil
}

var errNotFinite = errors.New("number is not finite")

func parseNumber(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errNotFinite
	}
	return v, nil
}

// parsePositive returns 0 for an absent value so that the page defaults apply.
func parsePositive(s, name string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, invalidInput("%s must be a positive integer", name)
	}
	return n, nil
}
