package catalog

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// Issue is a single rejected input field.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every problem found in a request.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		parts = append(parts, is.Field+": "+is.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

type issues []Issue

func (is *issues) add(field, format string, args ...any) {
	*is = append(*is, Issue{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (is issues) err() error {
	if len(is) == 0 {
		return nil
	}
	return &ValidationError{Issues: is}
}

func ValidateCreate(in CreateItem) error {
	var is issues
	checkText(&is, "name", in.Name)
	checkPrice(&is, "price", in.Price)
	checkText(&is, "category", in.Category)
	checkText(&is, "brand", in.Brand)
	if in.Rating != nil {
		checkRating(&is, "rating", *in.Rating)
	}
	if in.ImageURL != nil {
		checkURL(&is, "imageUrl", *in.ImageURL)
	}
	return is.err()
}

func ValidateUpdate(in UpdateItem) error {
	var is issues
	if in.Name.Set {
		checkText(&is, "name", in.Name.Value)
	}
	if in.Price.Set {
		checkPrice(&is, "price", in.Price.Value)
	}
	if in.Category.Set {
		checkText(&is, "category", in.Category.Value)
	}
	if in.Brand.Set {
		checkText(&is, "brand", in.Brand.Value)
	}
	if in.Rating.Set {
		checkRating(&is, "rating", in.Rating.Value)
	}
	if in.ImageURL.Set {
		checkURL(&is, "imageUrl", in.ImageURL.Value)
	}
	return is.err()
}

func checkText(is *issues, field, v string) {
	if v == "" {
		is.add(field, "must not be empty")
	}
}

func checkPrice(is *issues, field string, v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		is.add(field, "must be a positive number")
	}
}

func checkRating(is *issues, field string, v float64) {
	if math.IsNaN(v) || v < 0 || v > 5 {
		is.add(field, "must be between 0 and 5")
	}
}

func checkURL(is *issues, field, v string) {
	u, err := url.Parse(v)
	if err != nil || u.Scheme == "" || u.Host == "" {
		is.add(field, "must be an absolute URL")
	}
}

// ParseListQuery converts raw query parameters into a ListQuery with
// defaults applied.
func ParseListQuery(v url.Values) (ListQuery, error) {
	var is issues
	q := ListQuery{
		Category:  v.Get("category"),
		Brand:     v.Get("brand"),
		Search:    v.Get("search"),
		SortBy:    SortByCreatedAt,
		SortOrder: SortDesc,
		Page:      DefaultPage,
		Limit:     DefaultLimit,
	}

	q.MinPrice = parsePrice(&is, v, "minPrice")
	q.MaxPrice = parsePrice(&is, v, "maxPrice")

	if raw := v.Get("sortBy"); raw != "" {
		switch by := SortField(raw); by {
		case SortByName, SortByPrice, SortByRating, SortByCreatedAt:
			q.SortBy = by
		default:
			is.add("sortBy", "must be one of name, price, rating, createdAt")
		}
	}

	if raw := v.Get("sortOrder"); raw != "" {
		switch order := SortOrder(raw); order {
		case SortAsc, SortDesc:
			q.SortOrder = order
		default:
			is.add("sortOrder", "must be one of asc, desc")
		}
	}

	if raw := v.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			is.add("page", "must be an integer >= 1")
		} else {
			q.Page = n
		}
	}

	if raw := v.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxLimit {
			is.add("limit", "must be an integer between 1 and %d", MaxLimit)
		} else {
			q.Limit = n
		}
	}

	if err := is.err(); err != nil {
		return ListQuery{}, err
	}
	return q, nil
}

func parsePrice(is *issues, v url.Values, field string) *float64 {
	raw := v.Get(field)
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		is.add(field, "must be a positive number")
		return nil
	}
	return &f
}

// ParseIDs splits a comma separated id list, trimming blanks and dropping
// empty entries. Order and duplicates are preserved.
func ParseIDs(raw string) []string {
	out := make([]string, 0, strings.Count(raw, ",")+1)
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}

// ValidateCompareIDs enforces the compare cardinality bound.
func ValidateCompareIDs(ids []string) error {
	var is issues
	switch {
	case len(ids) == 0:
		is.add("ids", "At least one item ID is required")
	case len(ids) > MaxCompareIDs:
		is.add("ids", "Maximum %d items can be compared at once", MaxCompareIDs)
	}
	return is.err()
}
