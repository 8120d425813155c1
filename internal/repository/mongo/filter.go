package mongo

import (
	"regexp"

	"github.com/iyhunko/catalog-service/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var sortFields = map[repository.QueryField]string{
	repository.IDField:        "_id",
	repository.PriceField:     "price",
	repository.RatingField:    "rating",
	repository.FeaturedField:  "featured",
	repository.CreatedAtField: "created_at",
}

// containsRegex matches s literally anywhere in the value, ignoring case.
func containsRegex(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

func listFilter(filter repository.ListFilter) bson.D {
	f := bson.D{}
	if filter.MainCategory != "" {
		f = append(f, bson.E{Key: "main_category", Value: filter.MainCategory})
	}
	if filter.SubCategory != "" {
		f = append(f, bson.E{Key: "sub_category", Value: containsRegex(filter.SubCategory)})
	}
	return f
}

func searchFilter(query repository.SearchQuery) bson.D {
	f := bson.D{}
	if query.Text != "" {
		re := containsRegex(query.Text)
		f = append(f, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "name", Value: re}},
			bson.D{{Key: "main_category", Value: re}},
			bson.D{{Key: "sub_category", Value: re}},
		}})
	}
	if query.MainCategory != "" {
		f = append(f, bson.E{Key: "main_category", Value: query.MainCategory})
	}
	if query.MinRating != nil {
		f = append(f, bson.E{Key: "rating", Value: bson.D{{Key: "$gte", Value: *query.MinRating}}})
	}
	if query.Price != nil {
		f = append(f, bson.E{Key: "price", Value: bson.D{
			{Key: "$gte", Value: query.Price.Min},
			{Key: "$lte", Value: query.Price.Max},
		}})
	}
	return f
}

func searchSort(order repository.SortOrder) bson.D {
	keys := order.Keys()
	sort := make(bson.D, 0, len(keys))
	for _, key := range keys {
		direction := 1
		if key.Descending {
			direction = -1
		}
		sort = append(sort, bson.E{Key: sortFields[key.Field], Value: direction})
	}
	return sort
}
