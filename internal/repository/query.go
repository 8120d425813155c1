package repository

// SortOrder names a search result ordering.
type SortOrder string

const (
	SortFeatured SortOrder = "featured"
	SortLowest   SortOrder = "lowest"
	SortHighest  SortOrder = "highest"
	SortTopRated SortOrder = "toprated"
	SortNewest   SortOrder = "newest"
	// SortDefault orders by identity descending, i.e. most recently inserted first.
	SortDefault SortOrder = ""
)

// Product fields a search can sort on.
const (
	IDField        QueryField = "id"
	PriceField     QueryField = "price"
	RatingField    QueryField = "rating"
	FeaturedField  QueryField = "featured"
	CreatedAtField QueryField = "created_at"
)

// QueryField is a store-neutral product field name.
type QueryField string

// SortKey is one ordering term.
type SortKey struct {
	Field      QueryField
	Descending bool
}

// ParseSortOrder maps a client order name to a SortOrder; unknown names map to SortDefault.
func ParseSortOrder(order string) SortOrder {
	switch o := SortOrder(order); o {
	case SortFeatured, SortLowest, SortHighest, SortTopRated, SortNewest:
		return o
	default:
		return SortDefault
	}
}

// Keys expands the order into sort terms. Every order except the default ends with
// id descending so that pages are deterministic on ties.
func (o SortOrder) Keys() []SortKey {
	tieBreak := SortKey{Field: IDField, Descending: true}
	switch o {
	case SortFeatured:
		return []SortKey{{Field: FeaturedField, Descending: true}, tieBreak}
	case SortLowest:
		return []SortKey{{Field: PriceField}, tieBreak}
	case SortHighest:
		return []SortKey{{Field: PriceField, Descending: true}, tieBreak}
	case SortTopRated:
		return []SortKey{{Field: RatingField, Descending: true}, tieBreak}
	case SortNewest:
		return []SortKey{{Field: CreatedAtField, Descending: true}, tieBreak}
	default:
		return []SortKey{tieBreak}
	}
}

// PriceRange is an inclusive price interval.
type PriceRange struct {
	Min float64
	Max float64
}

// ListFilter selects products by category. Empty fields do not filter.
type ListFilter struct {
	// MainCategory is matched exactly.
	MainCategory string
	// SubCategory is matched as a case-insensitive substring.
	SubCategory string
}

// SearchQuery is a validated search. Nil/empty fields do not filter; active filters combine with AND.
type SearchQuery struct {
	// Text is matched as a case-insensitive substring of name, main category or subcategory.
	Text         string
	MainCategory string
	MinRating    *float64
	Price        *PriceRange
	Order        SortOrder
	Page         Page
}

// NewSearchQuery returns a query with no filters on the first default-sized page.
func NewSearchQuery() SearchQuery {
	return SearchQuery{
		Order: SortDefault,
		Page:  Page{Number: 1, Size: DefaultPageSize},
	}
}
