package catalog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateItem_DecodeTracksPresence(t *testing.T) {
	var in UpdateItem
	body := `{"description":"","availability":false,"features":[],"rating":0}`
	require.NoError(t, json.Unmarshal([]byte(body), &in))

	assert.False(t, in.IsEmpty())
	assert.False(t, in.Name.Set)
	assert.False(t, in.Price.Set)

	assert.True(t, in.Description.Set)
	assert.Equal(t, "", in.Description.Value)
	assert.True(t, in.Availability.Set)
	assert.False(t, in.Availability.Value)
	assert.True(t, in.Features.Set)
	assert.Empty(t, in.Features.Value)
	assert.True(t, in.Rating.Set)
	assert.Equal(t, 0.0, in.Rating.Value)
}

func TestUpdateItem_DecodeRejectsNull(t *testing.T) {
	var in UpdateItem
	err := json.Unmarshal([]byte(`{"name":null}`), &in)
	assert.ErrorIs(t, err, ErrNullField)
}

func TestUpdateItem_DecodeRejectsWrongType(t *testing.T) {
	var in UpdateItem
	assert.Error(t, json.Unmarshal([]byte(`{"price":"cheap"}`), &in))
}

func TestUpdateItem_EmptyBody(t *testing.T) {
	var in UpdateItem
	require.NoError(t, json.Unmarshal([]byte(`{}`), &in))
	assert.True(t, in.IsEmpty())

	it := sampleItems()[0]
	assert.Equal(t, it, in.apply(it))
}

func TestUpdateItem_ApplyDoesNotAlias(t *testing.T) {
	features := []string{"a", "b"}
	in := UpdateItem{Features: Some(features), ImageURL: Some("https://example.com/x.png")}

	out := in.apply(sampleItems()[0])
	features[0] = "mutated"

	assert.Equal(t, []string{"a", "b"}, out.Features)
	require.NotNil(t, out.ImageURL)
	assert.Equal(t, "https://example.com/x.png", *out.ImageURL)
}

func TestNewItem_Defaults(t *testing.T) {
	it := newItem("id-1", CreateItem{Name: "n", Price: 1, Category: "c", Brand: "b"}, day(5))

	assert.Equal(t, "id-1", it.ID)
	assert.True(t, it.Availability)
	assert.NotNil(t, it.Features)
	assert.Empty(t, it.Features)
	assert.Nil(t, it.Rating)
	assert.Nil(t, it.Description)
	assert.Equal(t, day(5), it.CreatedAt)
	assert.Equal(t, it.CreatedAt, it.UpdatedAt)

	data, err := json.Marshal(it)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"features":[]`)
	assert.NotContains(t, string(data), `"rating"`)
}
