package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// Main categories a product can belong to.
const (
	CategoryKeyboards   = "keyboards"
	CategoryMice        = "mice"
	CategoryHeadphones  = "headphones"
	CategoryAccessories = "accessories"
)

// MaxReviewsPerUser is the number of reviews a single user may leave on one product.
const MaxReviewsPerUser = 3

var (
	// ErrInvalidProduct is wrapped by every product validation failure.
	ErrInvalidProduct = errors.New("invalid product")

	// ErrInvalidReview is wrapped by every review validation failure.
	ErrInvalidReview = errors.New("invalid review")
)

var mainCategories = map[string]struct{}{
	CategoryKeyboards:   {},
	CategoryMice:        {},
	CategoryHeadphones:  {},
	CategoryAccessories: {},
}

// IsMainCategory reports whether c is one of the fixed main categories.
func IsMainCategory(c string) bool {
	_, ok := mainCategories[c]
	return ok
}

// Review is a user review embedded in a product.
type Review struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	User      string    `json:"user"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

// InitMeta initializes the review id and creation time.
func (r *Review) InitMeta() {
	r.ID = uuid.Must(uuid.NewV7())
	r.CreatedAt = time.Now().UTC()
}

// Validate checks the review rating bounds.
func (r *Review) Validate() error {
	if r.Rating < 1 || r.Rating > 5 {
		return fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidReview)
	}
	if r.User == "" {
		return fmt.Errorf("%w: reviewer is required", ErrInvalidReview)
	}
	return nil
}

// Product represents a catalog product with its embedded reviews.
// Rating and NumberOfReviews are derived from Reviews and kept in sync by AddReview and RecomputeRating.
type Product struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Slug            string    `json:"slug"`
	Vendor          string    `json:"vendor"`
	Price           float64   `json:"price"`
	Description     string    `json:"description"`
	Image           string    `json:"image"`
	MainCategory    string    `json:"mainCategory"`
	SubCategory     string    `json:"subCategory"`
	InStock         int       `json:"inStock"`
	Rating          float64   `json:"rating"`
	NumberOfReviews int       `json:"numberOfReviews"`
	Featured        bool      `json:"featured"`
	Reviews         []Review  `json:"reviews"`
	Version         int64     `json:"-"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// InitMeta initializes the product metadata including ID, version and timestamps.
// IDs are UUIDv7 so ordering by ID follows insertion order.
func (p *Product) InitMeta() {
	p.ID = uuid.Must(uuid.NewV7())
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	p.Version = 1
	if p.Reviews == nil {
		p.Reviews = []Review{}
	}
}

// SetName changes the name and re-derives the slug from it.
func (p *Product) SetName(name string) {
	p.Name = name
	p.Slug = slug.Make(name)
}

// Validate checks the persisted invariants that do not need the store.
func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if p.Slug == "" {
		return fmt.Errorf("%w: name must contain at least one letter or digit", ErrInvalidProduct)
	}
	if p.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	}
	if p.InStock < 0 {
		return fmt.Errorf("%w: inStock must not be negative", ErrInvalidProduct)
	}
	if !IsMainCategory(p.MainCategory) {
		return fmt.Errorf("%w: unknown main category %q", ErrInvalidProduct, p.MainCategory)
	}
	return nil
}

// ReviewsBy counts the reviews left by the given user.
func (p *Product) ReviewsBy(userID string) int {
	n := 0
	for _, r := range p.Reviews {
		if r.User == userID {
			n++
		}
	}
	return n
}

// AddReview appends a review and recomputes the derived rating fields.
func (p *Product) AddReview(r Review) {
	p.Reviews = append(p.Reviews, r)
	p.RecomputeRating()
}

// RecomputeRating sets NumberOfReviews to the review count and Rating to the mean review rating (0 without reviews).
func (p *Product) RecomputeRating() {
	p.NumberOfReviews = len(p.Reviews)
	if p.NumberOfReviews == 0 {
		p.Rating = 0
		return
	}
	sum := 0
	for _, r := range p.Reviews {
		sum += r.Rating
	}
	p.Rating = float64(sum) / float64(p.NumberOfReviews)
}

// ProductPatch carries a partial update. Nil fields are left untouched; zero values are applied.
type ProductPatch struct {
	Name         *string  `json:"name"`
	Vendor       *string  `json:"vendor"`
	Price        *float64 `json:"price"`
	Description  *string  `json:"description"`
	Image        *string  `json:"image"`
	MainCategory *string  `json:"mainCategory"`
	SubCategory  *string  `json:"subCategory"`
	InStock      *int     `json:"inStock"`
	Featured     *bool    `json:"featured"`
}

// IsEmpty reports whether the patch carries no field at all.
func (pp ProductPatch) IsEmpty() bool {
	return pp.Name == nil && pp.Vendor == nil && pp.Price == nil && pp.Description == nil &&
		pp.Image == nil && pp.MainCategory == nil && pp.SubCategory == nil && pp.InStock == nil &&
		pp.Featured == nil
}

// RenamesTo reports whether the patch changes the product's name, returning the new name.
func (pp ProductPatch) RenamesTo(p *Product) (string, bool) {
	if pp.Name == nil || *pp.Name == p.Name {
		return "", false
	}
	return *pp.Name, true
}

// Apply overwrites every provided field on p. A name change also re-derives the slug.
func (pp ProductPatch) Apply(p *Product) {
	if name, ok := pp.RenamesTo(p); ok {
		p.SetName(name)
	}
	if pp.Vendor != nil {
		p.Vendor = *pp.Vendor
	}
	if pp.Price != nil {
		p.Price = *pp.Price
	}
	if pp.Description != nil {
		p.Description = *pp.Description
	}
	if pp.Image != nil {
		p.Image = *pp.Image
	}
	if pp.MainCategory != nil {
		p.MainCategory = *pp.MainCategory
	}
	if pp.SubCategory != nil {
		p.SubCategory = *pp.SubCategory
	}
	if pp.InStock != nil {
		p.InStock = *pp.InStock
	}
	if pp.Featured != nil {
		p.Featured = *pp.Featured
	}
}
