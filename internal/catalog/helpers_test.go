package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func day(n int) time.Time {
	return time.Date(2024, 1, n, 10, 0, 0, 0, time.UTC)
}

func sampleItems() []Item {
	return []Item{
		{
			ID:           "123e4567-e89b-12d3-a456-426614174000",
			Name:         "iPhone 15 Pro",
			Price:        999.99,
			Category:     "smartphones",
			Brand:        "Apple",
			Description:  ptr("Latest iPhone with A17 Pro chip and titanium design"),
			Features:     []string{"A17 Pro chip", "48MP camera", "Titanium design", "USB-C", "5G"},
			Rating:       ptr(4.8),
			Availability: true,
			ImageURL:     ptr("https://example.com/iphone15pro.jpg"),
			CreatedAt:    day(1),
			UpdatedAt:    day(1),
		},
		{
			ID:           "123e4567-e89b-12d3-a456-426614174001",
			Name:         "Samsung Galaxy S24 Ultra",
			Price:        1199.99,
			Category:     "smartphones",
			Brand:        "Samsung",
			Description:  ptr("Premium Android smartphone with S Pen"),
			Features:     []string{"Snapdragon 8 Gen 3", "200MP camera", "S Pen", "120Hz display", "5G"},
			Rating:       ptr(4.7),
			Availability: true,
			CreatedAt:    day(2),
			UpdatedAt:    day(2),
		},
		{
			ID:           "123e4567-e89b-12d3-a456-426614174002",
			Name:         "MacBook Pro 14",
			Price:        1999.99,
			Category:     "laptops",
			Brand:        "Apple",
			Description:  ptr("Professional laptop with M3 chip"),
			Features:     []string{"M3 chip", "16GB RAM", "Touch ID"},
			Rating:       ptr(4.9),
			Availability: false,
			CreatedAt:    day(3),
			UpdatedAt:    day(3),
		},
	}
}

func writeItemsFile(t *testing.T, path string, items []Item) {
	t.Helper()
	data, err := json.MarshalIndent(items, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

// bumpModTime moves the file's mtime forward so a rewrite within the
// filesystem timestamp granularity is still observed as a change.
func bumpModTime(t *testing.T, path string, by time.Duration) {
	t.Helper()
	fi, err := os.Stat(path)
	require.NoError(t, err)
	mt := fi.ModTime().Add(by)
	require.NoError(t, os.Chtimes(path, mt, mt))
}

func openTestStore(t *testing.T, items []Item) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "items.json")
	if items != nil {
		writeItemsFile(t, path, items)
	}
	s := OpenStore(path, StoreDeps{})
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func itemIDs(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}
