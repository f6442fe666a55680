package catalog

import (
	"errors"
	"math"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issueFields(t *testing.T, err error) []string {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "want *ValidationError, got %v", err)
	out := make([]string, 0, len(verr.Issues))
	for _, is := range verr.Issues {
		out = append(out, is.Field)
	}
	return out
}

func TestValidateCreate(t *testing.T) {
	valid := CreateItem{Name: "n", Price: 1, Category: "c", Brand: "b"}
	require.NoError(t, ValidateCreate(valid))

	withOptional := valid
	withOptional.Rating = ptr(5.0)
	withOptional.ImageURL = ptr("https://example.com/a.jpg")
	require.NoError(t, ValidateCreate(withOptional))

	err := ValidateCreate(CreateItem{Price: -1, Rating: ptr(5.5), ImageURL: ptr("not a url")})
	assert.Equal(t, []string{"name", "price", "category", "brand", "rating", "imageUrl"}, issueFields(t, err))

	assert.Equal(t, []string{"price"}, issueFields(t, ValidateCreate(CreateItem{Name: "n", Price: math.Inf(1), Category: "c", Brand: "b"})))
	assert.Equal(t, []string{"price"}, issueFields(t, ValidateCreate(CreateItem{Name: "n", Category: "c", Brand: "b"})))
}

func TestValidateUpdate(t *testing.T) {
	require.NoError(t, ValidateUpdate(UpdateItem{}))
	require.NoError(t, ValidateUpdate(UpdateItem{Description: Some(""), Rating: Some(0.0)}))

	err := ValidateUpdate(UpdateItem{Name: Some(""), Price: Some(0.0), Rating: Some(-1.0), ImageURL: Some("/relative")})
	assert.Equal(t, []string{"name", "price", "rating", "imageUrl"}, issueFields(t, err))
}

func TestParseListQuery_Defaults(t *testing.T) {
	q, err := ParseListQuery(url.Values{})
	require.NoError(t, err)

	assert.Equal(t, ListQuery{
		SortBy:    SortByCreatedAt,
		SortOrder: SortDesc,
		Page:      DefaultPage,
		Limit:     DefaultLimit,
	}, q)
}

func TestParseListQuery_AllParameters(t *testing.T) {
	v := url.Values{
		"category":  {"smartphones"},
		"brand":     {"Apple"},
		"minPrice":  {"100"},
		"maxPrice":  {"1500.5"},
		"search":    {"pro"},
		"sortBy":    {"price"},
		"sortOrder": {"asc"},
		"page":      {"3"},
		"limit":     {"100"},
	}

	q, err := ParseListQuery(v)
	require.NoError(t, err)

	assert.Equal(t, "smartphones", q.Category)
	assert.Equal(t, "Apple", q.Brand)
	require.NotNil(t, q.MinPrice)
	assert.Equal(t, 100.0, *q.MinPrice)
	require.NotNil(t, q.MaxPrice)
	assert.Equal(t, 1500.5, *q.MaxPrice)
	assert.Equal(t, "pro", q.Search)
	assert.Equal(t, SortByPrice, q.SortBy)
	assert.Equal(t, SortAsc, q.SortOrder)
	assert.Equal(t, 3, q.Page)
	assert.Equal(t, 100, q.Limit)
}

func TestParseListQuery_Rejects(t *testing.T) {
	tests := []struct {
		raw   string
		field string
	}{
		{"minPrice=abc", "minPrice"},
		{"maxPrice=0", "maxPrice"},
		{"minPrice=-5", "minPrice"},
		{"sortBy=popularity", "sortBy"},
		{"sortOrder=up", "sortOrder"},
		{"page=0", "page"},
		{"page=1.5", "page"},
		{"limit=0", "limit"},
		{"limit=101", "limit"},
	}

	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			v, err := url.ParseQuery(tc.raw)
			require.NoError(t, err)

			_, err = ParseListQuery(v)
			assert.Equal(t, []string{tc.field}, issueFields(t, err))
		})
	}
}

func TestParseIDs(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{"", []string{}},
		{" , ,", []string{}},
		{"a", []string{"a"}},
		{" a , b,,a ", []string{"a", "b", "a"}},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, ParseIDs(tc.raw), "raw=%q", tc.raw)
	}
}

func TestValidateCompareIDs(t *testing.T) {
	assert.NoError(t, ValidateCompareIDs([]string{"a"}))
	assert.NoError(t, ValidateCompareIDs(make([]string, MaxCompareIDs)))

	var verr *ValidationError
	require.ErrorAs(t, ValidateCompareIDs(nil), &verr)
	assert.Equal(t, "At least one item ID is required", verr.Issues[0].Message)

	require.ErrorAs(t, ValidateCompareIDs(make([]string, MaxCompareIDs+1)), &verr)
	assert.Equal(t, "Maximum 10 items can be compared at once", verr.Issues[0].Message)
}
