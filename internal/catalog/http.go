package catalog

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ItemCatalog/pkg/kit"
)

// Catalog is the contract the HTTP layer relies on. Reads report the
// Version they were served from so validators and body always agree.
type Catalog interface {
	ListAt(query ListQuery) (ListResult, Version)
	GetAt(id string) (Item, bool, Version)
	CompareAt(ids []string) ([]Comparison, Version)
	Create(in CreateItem) (Item, error)
	Update(id string, in UpdateItem) (Item, bool, error)
	Delete(id string) (bool, error)
	Ping(ctx context.Context) error
}

type Server struct {
	Catalog Catalog
	Log     *zap.Logger
	Started time.Time
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    float64   `json:"uptime"`
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.health)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", s.readyz)

	r.Route("/items", func(r chi.Router) {
		r.Get("/", s.list)
		r.Post("/", s.create)
		r.Get("/{id}", s.get)
		r.Put("/{id}", s.update)
		r.Delete("/{id}", s.delete)
	})
	r.Get("/compare", s.compare)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		kit.WriteError(w, r, http.StatusNotFound, "route not found", map[string]any{"path": r.URL.Path})
	})

	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	now := time.Now().UTC()
	kit.WriteJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: now,
		Uptime:    now.Sub(s.Started).Seconds(),
	})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
	defer cancel()

	if err := s.Catalog.Ping(ctx); err != nil {
		s.logger().Warn("readyz failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	query, err := ParseListQuery(r.URL.Query())
	if err != nil {
		s.writeValidation(w, r, err)
		return
	}
	res, v := s.Catalog.ListAt(query)
	if kit.NotModified(w, r, v) {
		return
	}
	kit.WriteData(w, http.StatusOK, res)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	it, ok, v := s.Catalog.GetAt(id)
	if kit.NotModified(w, r, v) {
		return
	}
	if !ok {
		writeNotFound(w, r, id)
		return
	}
	kit.WriteData(w, http.StatusOK, it)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var in CreateItem
	if err := kit.DecodeJSON(w, r, &in); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", err.Error())
		return
	}
	if err := ValidateCreate(in); err != nil {
		s.writeValidation(w, r, err)
		return
	}

	it, err := s.Catalog.Create(in)
	if err != nil {
		s.writeStoreError(w, r, "create item failed", err)
		return
	}
	kit.WriteData(w, http.StatusCreated, it)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var in UpdateItem
	if err := kit.DecodeJSON(w, r, &in); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", err.Error())
		return
	}
	if err := ValidateUpdate(in); err != nil {
		s.writeValidation(w, r, err)
		return
	}

	it, ok, err := s.Catalog.Update(id, in)
	if err != nil {
		s.writeStoreError(w, r, "update item failed", err)
		return
	}
	if !ok {
		writeNotFound(w, r, id)
		return
	}
	kit.WriteData(w, http.StatusOK, it)
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ok, err := s.Catalog.Delete(id)
	if err != nil {
		s.writeStoreError(w, r, "delete item failed", err)
		return
	}
	if !ok {
		writeNotFound(w, r, id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) compare(w http.ResponseWriter, r *http.Request) {
	if !r.URL.Query().Has("ids") {
		s.writeValidation(w, r, &ValidationError{Issues: []Issue{{Field: "ids", Message: "is required"}}})
		return
	}

	ids := ParseIDs(r.URL.Query().Get("ids"))
	if err := ValidateCompareIDs(ids); err != nil {
		s.writeValidation(w, r, err)
		return
	}
	res, v := s.Catalog.CompareAt(ids)
	if kit.NotModified(w, r, v) {
		return
	}
	kit.WriteData(w, http.StatusOK, res)
}

func (s *Server) writeValidation(w http.ResponseWriter, r *http.Request, err error) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		kit.WriteError(w, r, http.StatusBadRequest, "validation failed", verr.Issues)
		return
	}
	kit.WriteError(w, r, http.StatusBadRequest, "validation failed", err.Error())
}

func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	var perr *PersistenceError
	if errors.As(err, &perr) {
		s.logger().Error(msg, zap.Error(err), zap.String("path", perr.Path))
	} else {
		s.logger().Error(msg, zap.Error(err))
	}
	kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
}

func (s *Server) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func writeNotFound(w http.ResponseWriter, r *http.Request, id string) {
	kit.WriteError(w, r, http.StatusNotFound, "item not found", map[string]any{"id": id})
}
