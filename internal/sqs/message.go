package sqs

import (
	"time"

	"github.com/iyhunko/catalog-service/internal/model"
)

// CatalogMessage describes a catalog change published to the queue.
type CatalogMessage struct {
	Action          string    `json:"action"`
	ProductID       string    `json:"product_id"`
	Slug            string    `json:"slug"`
	Name            string    `json:"name"`
	MainCategory    string    `json:"main_category"`
	Price           float64   `json:"price"`
	Rating          float64   `json:"rating"`
	NumberOfReviews int       `json:"number_of_reviews"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// NewCatalogMessage snapshots p for the given action, e.g. model.EventProductCreated.
func NewCatalogMessage(action string, p *model.Product) CatalogMessage {
	return CatalogMessage{
		Action:          action,
		ProductID:       p.ID.String(),
		Slug:            p.Slug,
		Name:            p.Name,
		MainCategory:    p.MainCategory,
		Price:           p.Price,
		Rating:          p.Rating,
		NumberOfReviews: p.NumberOfReviews,
		OccurredAt:      time.Now().UTC(),
	}
}
