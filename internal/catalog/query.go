package catalog

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

type SortField string

const (
	SortByName      SortField = "name"
	SortByPrice     SortField = "price"
	SortByRating    SortField = "rating"
	SortByCreatedAt SortField = "createdAt"
)

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100

	MaxCompareIDs = 10

	defaultCacheSize = 256
)

// ListQuery selects, orders and pages items. Empty strings and nil
// pointers mean the filter is not applied.
type ListQuery struct {
	Category string
	Brand    string
	MinPrice *float64
	MaxPrice *float64
	Search   string

	SortBy    SortField
	SortOrder SortOrder

	Page  int
	Limit int
}

type PageMeta struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

type ListResult struct {
	Items []Item   `json:"items"`
	Meta  PageMeta `json:"meta"`
}

// Source is what the query engine needs from the store.
type Source interface {
	Snapshot() Snapshot
	GetByID(id string) (Item, bool)
	GetByIDs(ids []string) []Item
	Create(in CreateItem) (Item, error)
	Update(id string, in UpdateItem) (Item, bool, error)
	Delete(id string) (bool, error)
	Fingerprint() string
	LastModified() time.Time
	Ping(ctx context.Context) error
}

// Version identifies the collection state a response was computed from.
// It carries the cache validators sent with that response.
type Version struct {
	fingerprint  string
	lastModified time.Time
}

func versionOf(snap Snapshot) Version {
	return Version{fingerprint: snap.Fingerprint, lastModified: snap.LastModified}
}

func (v Version) Fingerprint() string     { return v.fingerprint }
func (v Version) LastModified() time.Time { return v.lastModified }

type QueryDeps struct {
	Log      *zap.Logger
	Registry *prometheus.Registry
	// CacheSize bounds the list result cache. Zero selects the default,
	// a negative value disables caching.
	CacheSize int
}

// QueryEngine answers list and compare queries over store snapshots and
// forwards commands to the store.
type QueryEngine struct {
	src   Source
	log   *zap.Logger
	cache *listCache
}

func NewQueryEngine(src Source, deps QueryDeps) *QueryEngine {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}

	size := deps.CacheSize
	if size == 0 {
		size = defaultCacheSize
	}

	return &QueryEngine{
		src:   src,
		log:   log,
		cache: newListCache(size, deps.Registry),
	}
}

func (q *QueryEngine) List(query ListQuery) ListResult {
	res, _ := q.ListAt(query)
	return res
}

// ListAt is List plus the version of the snapshot the page was cut from.
func (q *QueryEngine) ListAt(query ListQuery) (ListResult, Version) {
	query = query.withDefaults()
	snap := q.src.Snapshot()
	v := versionOf(snap)

	key := query.cacheKey()
	if res, ok := q.cache.get(snap.Fingerprint, key); ok {
		return res, v
	}

	items := filterItems(snap.Items, query)
	sortItems(items, query.SortBy, query.SortOrder)
	res := paginate(items, query.Page, query.Limit)

	q.cache.add(snap.Fingerprint, key, res)

	q.log.Debug("items retrieved",
		zap.String("query", key),
		zap.Int("total", res.Meta.Total),
		zap.Int("returned", len(res.Items)),
	)
	return res, v
}

func (q *QueryEngine) Get(id string) (Item, bool) {
	it, ok := q.src.GetByID(id)
	if !ok {
		q.log.Debug("item not found", zap.String("id", id))
	}
	return it, ok
}

// GetAt looks id up in a single snapshot and reports that snapshot's version.
func (q *QueryEngine) GetAt(id string) (Item, bool, Version) {
	snap := q.src.Snapshot()
	for _, it := range snap.Items {
		if it.ID == id {
			return it, true, versionOf(snap)
		}
	}
	q.log.Debug("item not found", zap.String("id", id))
	return Item{}, false, versionOf(snap)
}

func (q *QueryEngine) GetMany(ids []string) []Item {
	return q.src.GetByIDs(ids)
}

// Compare resolves ids to comparison views in collection order. Callers
// bound the number of ids.
func (q *QueryEngine) Compare(ids []string) []Comparison {
	return q.compare(ids, q.src.GetByIDs(ids))
}

// CompareAt is Compare over a single snapshot, with that snapshot's version.
func (q *QueryEngine) CompareAt(ids []string) ([]Comparison, Version) {
	snap := q.src.Snapshot()
	return q.compare(ids, pickIDs(snap.Items, ids)), versionOf(snap)
}

func (q *QueryEngine) compare(ids []string, items []Item) []Comparison {
	out := make([]Comparison, 0, len(items))
	for _, it := range items {
		out = append(out, it.comparison())
	}

	q.log.Debug("items compared", zap.Strings("requested_ids", ids), zap.Int("found", len(out)))
	return out
}

func (q *QueryEngine) Create(in CreateItem) (Item, error) {
	it, err := q.src.Create(in)
	if err != nil {
		return Item{}, err
	}
	q.log.Info("item created successfully", zap.String("id", it.ID), zap.String("name", it.Name))
	return it, nil
}

func (q *QueryEngine) Update(id string, in UpdateItem) (Item, bool, error) {
	it, ok, err := q.src.Update(id, in)
	if err != nil || !ok {
		return Item{}, ok, err
	}
	q.log.Info("item updated successfully", zap.String("id", id), zap.String("name", it.Name))
	return it, true, nil
}

func (q *QueryEngine) Delete(id string) (bool, error) {
	return q.src.Delete(id)
}

func (q *QueryEngine) Fingerprint() string { return q.src.Fingerprint() }
func (q *QueryEngine) LastModified() time.Time { return q.src.LastModified() }
func (q *QueryEngine) Ping(ctx context.Context) error { return q.src.Ping(ctx) }

func (query ListQuery) withDefaults() ListQuery {
	if query.SortBy == "" {
		query.SortBy = SortByCreatedAt
	}
	if query.SortOrder == "" {
		query.SortOrder = SortDesc
	}
	if query.Page < 1 {
		query.Page = DefaultPage
	}
	if query.Limit < 1 {
		query.Limit = DefaultLimit
	}
	return query
}

func (query ListQuery) cacheKey() string {
	price := func(p *float64) string {
		if p == nil {
			return "-"
		}
		return strconv.FormatFloat(*p, 'g', -1, 64)
	}
	return fmt.Sprintf("c=%q b=%q min=%s max=%s q=%q sort=%s:%s page=%d limit=%d",
		query.Category, query.Brand, price(query.MinPrice), price(query.MaxPrice), query.Search,
		query.SortBy, query.SortOrder, query.Page, query.Limit)
}

// filterItems keeps the items matching every structural filter and, if
// set, the search term. The result never aliases items.
func filterItems(items []Item, query ListQuery) []Item {
	var term string
	var fold cases.Caser
	if query.Search != "" {
		fold = cases.Fold()
		term = fold.String(query.Search)
	}

	out := make([]Item, 0, len(items))
	for _, it := range items {
		if query.Category != "" && it.Category != query.Category {
			continue
		}
		if query.Brand != "" && it.Brand != query.Brand {
			continue
		}
		if query.MinPrice != nil && it.Price < *query.MinPrice {
			continue
		}
		if query.MaxPrice != nil && it.Price > *query.MaxPrice {
			continue
		}
		if term != "" && !matchesSearch(it, term, fold) {
			continue
		}
		out = append(out, it)
	}
	return out
}

func matchesSearch(it Item, term string, fold cases.Caser) bool {
	contains := func(s string) bool { return strings.Contains(fold.String(s), term) }

	if contains(it.Name) || contains(it.Brand) || contains(it.Category) {
		return true
	}
	if it.Description != nil && contains(*it.Description) {
		return true
	}
	return slices.ContainsFunc(it.Features, contains)
}

// sortItems orders items in place. Descending order negates the
// comparator, so items with equal keys keep their collection order.
func sortItems(items []Item, by SortField, order SortOrder) {
	var col *collate.Collator
	if by == SortByName {
		col = collate.New(language.English)
	}

	sign := 1
	if order == SortDesc {
		sign = -1
	}

	slices.SortStableFunc(items, func(a, b Item) int {
		return sign * compareBy(a, b, by, col)
	})
}

func compareBy(a, b Item, by SortField, col *collate.Collator) int {
	switch by {
	case SortByName:
		return col.CompareString(a.Name, b.Name)
	case SortByPrice:
		return cmp.Compare(a.Price, b.Price)
	case SortByRating:
		return cmp.Compare(ratingOf(a), ratingOf(b))
	case SortByCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	default:
		return 0
	}
}

// pickIDs keeps the items whose id is in ids, in collection order.
func pickIDs(items []Item, ids []string) []Item {
	out := make([]Item, 0, len(ids))
	for _, it := range items {
		if slices.Contains(ids, it.ID) {
			out = append(out, it)
		}
	}
	return out
}

func ratingOf(it Item) float64 {
	if it.Rating == nil {
		return 0
	}
	return *it.Rating
}

func paginate(items []Item, page, limit int) ListResult {
	total := len(items)

	totalPages := 0
	out := []Item{}
	if total > 0 {
		totalPages = (total-1)/limit + 1
		// Compare page indexes, not offsets: (page-1)*limit overflows for huge pages.
		if page <= totalPages {
			offset := (page - 1) * limit
			out = items[offset:min(offset+limit, total)]
		}
	}

	return ListResult{
		Items: out,
		Meta: PageMeta{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
			HasPrev:    page > 1,
		},
	}
}
