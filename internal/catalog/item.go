package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"
)

// Item is a single catalog record as stored in the backing file.
type Item struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Price        float64   `json:"price"`
	Category     string    `json:"category"`
	Brand        string    `json:"brand"`
	Description  *string   `json:"description,omitempty"`
	Features     []string  `json:"features"`
	Rating       *float64  `json:"rating,omitempty"`
	Availability bool      `json:"availability"`
	ImageURL     *string   `json:"imageUrl,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// CreateItem holds the caller-supplied fields of a new item.
type CreateItem struct {
	Name         string   `json:"name"`
	Price        float64  `json:"price"`
	Category     string   `json:"category"`
	Brand        string   `json:"brand"`
	Description  *string  `json:"description,omitempty"`
	Features     []string `json:"features,omitempty"`
	Rating       *float64 `json:"rating,omitempty"`
	Availability *bool    `json:"availability,omitempty"`
	ImageURL     *string  `json:"imageUrl,omitempty"`
}

// UpdateItem is a partial update. Only fields with Set == true are applied.
type UpdateItem struct {
	Name         Field[string]   `json:"name"`
	Price        Field[float64]  `json:"price"`
	Category     Field[string]   `json:"category"`
	Brand        Field[string]   `json:"brand"`
	Description  Field[string]   `json:"description"`
	Features     Field[[]string] `json:"features"`
	Rating       Field[float64]  `json:"rating"`
	Availability Field[bool]     `json:"availability"`
	ImageURL     Field[string]   `json:"imageUrl"`
}

// Comparison is the projection of an Item returned by compare lookups.
type Comparison struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Price       float64  `json:"price"`
	Category    string   `json:"category"`
	Brand       string   `json:"brand"`
	Features    []string `json:"features"`
	Description *string  `json:"description,omitempty"`
	ImageURL    *string  `json:"imageUrl,omitempty"`
	Rating      *float64 `json:"rating,omitempty"`
}

var ErrNullField = errors.New("null is not allowed")

// Field distinguishes an omitted JSON member from one that was sent.
type Field[T any] struct {
	Value T
	Set   bool
}

// Some returns a Field that is present with value v.
func Some[T any](v T) Field[T] {
	return Field[T]{Value: v, Set: true}
}

func (f *Field[T]) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return ErrNullField
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	f.Value, f.Set = v, true
	return nil
}

// IsEmpty reports whether no field of the update is set.
func (u UpdateItem) IsEmpty() bool {
	return !u.Name.Set && !u.Price.Set && !u.Category.Set && !u.Brand.Set &&
		!u.Description.Set && !u.Features.Set && !u.Rating.Set &&
		!u.Availability.Set && !u.ImageURL.Set
}

func newItem(id string, in CreateItem, now time.Time) Item {
	it := Item{
		ID:           id,
		Name:         in.Name,
		Price:        in.Price,
		Category:     in.Category,
		Brand:        in.Brand,
		Description:  cloneString(in.Description),
		Features:     cloneStrings(in.Features),
		Rating:       cloneFloat(in.Rating),
		Availability: true,
		ImageURL:     cloneString(in.ImageURL),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if in.Availability != nil {
		it.Availability = *in.Availability
	}
	return it
}

// apply returns a copy of it with the set fields of u merged in.
// Identity and creation time are never touched.
func (u UpdateItem) apply(it Item) Item {
	out := it.clone()
	if u.Name.Set {
		out.Name = u.Name.Value
	}
	if u.Price.Set {
		out.Price = u.Price.Value
	}
	if u.Category.Set {
		out.Category = u.Category.Value
	}
	if u.Brand.Set {
		out.Brand = u.Brand.Value
	}
	if u.Description.Set {
		out.Description = cloneString(&u.Description.Value)
	}
	if u.Features.Set {
		out.Features = cloneStrings(u.Features.Value)
	}
	if u.Rating.Set {
		out.Rating = cloneFloat(&u.Rating.Value)
	}
	if u.Availability.Set {
		out.Availability = u.Availability.Value
	}
	if u.ImageURL.Set {
		out.ImageURL = cloneString(&u.ImageURL.Value)
	}
	return out
}

func (it Item) clone() Item {
	it.Description = cloneString(it.Description)
	it.Features = cloneStrings(it.Features)
	it.Rating = cloneFloat(it.Rating)
	it.ImageURL = cloneString(it.ImageURL)
	return it
}

func (it Item) comparison() Comparison {
	return Comparison{
		ID:          it.ID,
		Name:        it.Name,
		Price:       it.Price,
		Category:    it.Category,
		Brand:       it.Brand,
		Features:    cloneStrings(it.Features),
		Description: cloneString(it.Description),
		ImageURL:    cloneString(it.ImageURL),
		Rating:      cloneFloat(it.Rating),
	}
}

func cloneItems(items []Item) []Item {
	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = it.clone()
	}
	return out
}

func cloneStrings(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
