//go:build integration
// +build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"testing"
	"time"
)

var baseURL = getenv("E2E_BASE_URL", "http://localhost:8082")

type envelope struct {
	Data json.RawMessage `json:"data"`
}

type item struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func TestSystem_E2E_ItemLifecycle(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	waitReady(t, ctx, baseURL+"/readyz")

	name := fmt.Sprintf("e2e item %d_%d", time.Now().Unix(), rand.Intn(100000))

	var created item
	doJSON(t, http.MethodPost, baseURL+"/items", map[string]any{
		"name":     name,
		"price":    42.5,
		"category": "e2e",
		"brand":    "integration",
		"features": []string{"persisted"},
	}, &created, 201)
	if created.ID == "" {
		t.Fatalf("item id missing: %#v", created)
	}

	var page struct {
		Items []item `json:"items"`
		Meta  struct {
			Total int `json:"total"`
		} `json:"meta"`
	}
	doJSON(t, http.MethodGet, baseURL+"/items?category=e2e&search="+url.QueryEscape(name), nil, &page, 200)
	if page.Meta.Total != 1 || len(page.Items) != 1 || page.Items[0].ID != created.ID {
		t.Fatalf("search did not find the new item: %#v", page)
	}

	var updated item
	doJSON(t, http.MethodPut, baseURL+"/items/"+created.ID, map[string]any{"price": 40}, &updated, 200)
	if updated.Price != 40 || !updated.UpdatedAt.After(created.UpdatedAt) {
		t.Fatalf("update not applied: %#v", updated)
	}

	var compared []item
	doJSON(t, http.MethodGet, baseURL+"/compare?ids="+created.ID+","+created.ID, nil, &compared, 200)
	if len(compared) != 1 {
		t.Fatalf("compare returned %d items", len(compared))
	}

	if os.Getenv("E2E_RESTART_CATALOG") == "1" {
		composeRestart(t, ctx, getenv("E2E_CATALOG_SERVICE", "catalog"))
		waitReady(t, ctx, baseURL+"/readyz")

		var got item
		doJSON(t, http.MethodGet, baseURL+"/items/"+created.ID, nil, &got, 200)
		if got.Price != 40 || got.Name != name {
			t.Fatalf("item not persisted across restart: %#v", got)
		}
	}

	doJSON(t, http.MethodDelete, baseURL+"/items/"+created.ID, nil, nil, 204)
	doJSON(t, http.MethodGet, baseURL+"/items/"+created.ID, nil, nil, 404)
}

func TestSystem_E2E_ConditionalList(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	waitReady(t, ctx, baseURL+"/readyz")

	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(baseURL + "/items")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	_ = resp.Body.Close()

	etag := resp.Header.Get("ETag")
	if etag == "" {
		t.Fatalf("missing ETag")
	}

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/items", nil)
	req.Header.Set("If-None-Match", etag)
	resp, err = client.Do(req)
	if err != nil {
		t.Fatalf("conditional list: %v", err)
	}
	_ = resp.Body.Close()

	// Another test may mutate the collection in between.
	if resp.StatusCode != http.StatusNotModified && resp.StatusCode != http.StatusOK {
		t.Fatalf("conditional list status=%d", resp.StatusCode)
	}
}

func waitReady(t *testing.T, ctx context.Context, url string) {
	t.Helper()
	client := &http.Client{Timeout: 2 * time.Second}

	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		resp, err := client.Do(req)
		if err == nil && resp != nil && resp.StatusCode == 200 {
			_ = resp.Body.Close()
			return
		}
		if resp != nil {
			_ = resp.Body.Close()
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("service not ready: %s", url)
}

// doJSON checks the status and, when out is set, decodes the data member of
// the response envelope into it.
func doJSON(t *testing.T, method, url string, body any, out any, want int) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		t.Fatalf("%s %s: status=%d want=%d", method, url, resp.StatusCode, want)
	}

	if out != nil {
		var env envelope
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if err := json.Unmarshal(env.Data, out); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
}

// composeRestart bounces one compose service so the next reads come from
// whatever it persisted.
func composeRestart(t *testing.T, ctx context.Context, service string) {
	t.Helper()

	out, err := exec.CommandContext(ctx, "docker", "compose", "restart", service).CombinedOutput()
	if err != nil {
		t.Fatalf("restart %s: %v\n%s", service, err, out)
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
