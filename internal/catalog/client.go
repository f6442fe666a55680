package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	ErrRemoteNotFound    = errors.New("catalog item not found")
	ErrRemoteBadStatus   = errors.New("catalog bad status")
	ErrRemoteUnavailable = errors.New("catalog unavailable")
)

// Client talks to a running catalog over HTTP.
type Client struct {
	BaseURL string
	Client  *http.Client
}

// RemoteList is a list response together with its cache validators.
// NotModified is set when the server answered 304 to the supplied ETag;
// Result is empty in that case.
type RemoteList struct {
	Result       ListResult
	ETag         string
	LastModified string
	NotModified  bool
}

func NewClient(baseURL string) *Client {
	if u, err := url.Parse(baseURL); err == nil && u.Scheme != "" && u.Host != "" {
		baseURL = strings.TrimRight(baseURL, "/")
	}
	return &Client{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 3 * time.Second},
	}
}

func (c *Client) Get(ctx context.Context, id string) (Item, error) {
	var it Item
	_, err := c.do(ctx, "/items/"+url.PathEscape(id), nil, "", &it)
	return it, err
}

// List fetches one page. A non-empty etag is sent as If-None-Match.
func (c *Client) List(ctx context.Context, query url.Values, etag string) (RemoteList, error) {
	var out RemoteList
	resp, err := c.do(ctx, "/items", query, etag, &out.Result)
	if err != nil {
		return RemoteList{}, err
	}
	out.ETag = resp.Header.Get("ETag")
	out.LastModified = resp.Header.Get("Last-Modified")
	out.NotModified = resp.StatusCode == http.StatusNotModified
	return out, nil
}

func (c *Client) Compare(ctx context.Context, ids []string) ([]Comparison, error) {
	var out []Comparison
	_, err := c.do(ctx, "/compare", url.Values{"ids": {strings.Join(ids, ",")}}, "", &out)
	return out, err
}

func (c *Client) do(ctx context.Context, path string, query url.Values, etag string, data any) (*http.Response, error) {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotModified:
		return resp, nil
	case http.StatusNotFound:
		return nil, ErrRemoteNotFound
	default:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: status=%d", ErrRemoteBadStatus, resp.StatusCode)
	}

	env := struct {
		Data any `json:"data"`
	}{Data: data}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, err
	}
	return resp, nil
}
