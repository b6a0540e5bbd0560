// Package qdrant provides a driven.VectorIndex backed by a Qdrant server
// over its REST API.
package qdrant

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docqa/internal/adapters/driven/httpjson"
	"github.com/custodia-labs/docqa/internal/adapters/driven/storage"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorIndex = (*Store)(nil)

// Default configuration values.
const (
	DefaultURL        = "http://localhost:6333"
	DefaultCollection = "documents"
	DefaultTimeout    = 15 * time.Second

	scrollPageSize = 256
)

// Payload keys reserved by this adapter.
const (
	payloadText    = "text"
	payloadChunkID = "chunk_id"
)

// pointNamespace derives point UUIDs from chunk ids, since Qdrant only
// accepts unsigned integers or UUIDs as point ids.
var pointNamespace = uuid.MustParse("6f1d3c9a-2b57-4c1e-9a0e-5d7b8f3e4a21")

// Config holds configuration for the Qdrant store.
type Config struct {
	// URL is the Qdrant REST endpoint.
	URL string

	// APIKey is sent as the api-key header when set.
	APIKey string

	// Collection holds every chunk.
	Collection string

	// Dimensions creates the collection up front when positive. Otherwise
	// it is created on the first upsert.
	Dimensions int

	// Timeout bounds each request.
	Timeout time.Duration
}

// Store is a Qdrant-backed vector index using cosine distance.
type Store struct {
	http       *httpjson.Client
	base       string
	collection string

	mu    sync.Mutex
	ready bool
}

type point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

type scoredPoint struct {
	ID      any            `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload"`
}

type scrollResult struct {
	Result struct {
		Points         []scoredPoint `json:"points"`
		NextPageOffset any           `json:"next_page_offset"`
	} `json:"result"`
}

// NewStore connects to Qdrant and, when Dimensions is known, makes sure
// the collection exists.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	headers := map[string]string{}
	if cfg.APIKey != "" {
		headers["api-key"] = cfg.APIKey
	}

	s := &Store{
		http: &httpjson.Client{
			Provider: "qdrant",
			HTTP:     &http.Client{Timeout: cfg.Timeout},
			Headers:  headers,
		},
		base:       strings.TrimRight(cfg.URL, "/") + "/collections/" + url.PathEscape(cfg.Collection),
		collection: cfg.Collection,
	}

	if cfg.Dimensions > 0 {
		if err := s.ensureCollection(ctx, cfg.Dimensions); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// ensureCollection creates the collection if it does not exist yet.
func (s *Store) ensureCollection(ctx context.Context, dimensions int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}

	err := s.http.Get(ctx, s.base, nil)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		body := map[string]any{
			"vectors": map[string]any{"size": dimensions, "distance": "Cosine"},
		}
		if err := s.http.Do(ctx, http.MethodPut, s.base, body, nil); err != nil {
			return fmt.Errorf("qdrant: create collection %s: %w", s.collection, err)
		}
	default:
		return fmt.Errorf("qdrant: inspect collection %s: %w", s.collection, err)
	}

	s.ready = true
	return nil
}

// PointID maps a chunk id to its Qdrant point id.
func PointID(chunkID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(chunkID)).String()
}

// Upsert writes the batch in one request and waits for it to be applied.
func (s *Store) Upsert(ctx context.Context, records []driven.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := s.ensureCollection(ctx, len(records[0].Vector)); err != nil {
		return err
	}

	points := make([]point, 0, len(records))
	for _, r := range records {
		payload := storage.CopyMetadata(r.Metadata)
		payload[payloadText] = r.Text
		payload[payloadChunkID] = r.ID
		points = append(points, point{ID: PointID(r.ID), Vector: r.Vector, Payload: payload})
	}

	body := map[string]any{"points": points}
	if err := s.http.Do(ctx, http.MethodPut, s.base+"/points?wait=true", body, nil); err != nil {
		return fmt.Errorf("qdrant: upsert: %w", err)
	}
	return nil
}

// Query runs a filtered similarity search. Qdrant reports cosine
// similarity, which is converted back to a distance.
func (s *Store) Query(ctx context.Context, vector []float32, k int, filter map[string]string) ([]driven.VectorHit, error) {
	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	if f := buildFilter(filter); f != nil {
		req["filter"] = f
	}

	var resp struct {
		Result []scoredPoint `json:"result"`
	}
	if err := s.http.Post(ctx, s.base+"/points/search", req, &resp); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("qdrant: search: %w", err)
	}

	hits := make([]driven.VectorHit, 0, len(resp.Result))
	for _, p := range resp.Result {
		id, text, meta := splitPayload(p)
		hits = append(hits, driven.VectorHit{ID: id, Text: text, Metadata: meta, Distance: 1 - p.Score})
	}
	return hits, nil
}

// Delete removes the points for ids.
func (s *Store) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	points := make([]string, 0, len(ids))
	for _, id := range ids {
		points = append(points, PointID(id))
	}

	err := s.http.Post(ctx, s.base+"/points/delete?wait=true", map[string]any{"points": points}, nil)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("qdrant: delete: %w", err)
	}
	return nil
}

// IDsWhere scrolls through every point matching key=value.
func (s *Store) IDsWhere(ctx context.Context, key, value string) ([]string, error) {
	var ids []string
	err := s.scroll(ctx, buildFilter(map[string]string{key: value}), -1, func(p scoredPoint) {
		id, _, _ := splitPayload(p)
		ids = append(ids, id)
	})
	return ids, err
}

// Count returns the exact number of points.
func (s *Store) Count(ctx context.Context) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if err := s.http.Post(ctx, s.base+"/points/count", map[string]any{"exact": true}, &resp); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("qdrant: count: %w", err)
	}
	return resp.Result.Count, nil
}

// Peek returns up to limit points without vectors.
func (s *Store) Peek(ctx context.Context, limit int) ([]driven.VectorRecord, error) {
	var out []driven.VectorRecord
	err := s.scroll(ctx, nil, limit, func(p scoredPoint) {
		id, text, meta := splitPayload(p)
		out = append(out, driven.VectorRecord{ID: id, Text: text, Metadata: meta})
	})
	return out, err
}

// Close releases resources.
func (s *Store) Close() error {
	s.http.HTTP.CloseIdleConnections()
	return nil
}

// scroll pages through matching points, stopping after limit points when
// limit is non-negative.
func (s *Store) scroll(ctx context.Context, filter map[string]any, limit int, fn func(scoredPoint)) error {
	var offset any
	seen := 0
	for {
		page := scrollPageSize
		if limit >= 0 && limit-seen < page {
			page = limit - seen
		}
		if page <= 0 {
			return nil
		}

		req := map[string]any{
			"limit":        page,
			"with_payload": true,
			"with_vector":  false,
		}
		if filter != nil {
			req["filter"] = filter
		}
		if offset != nil {
			req["offset"] = offset
		}

		var resp scrollResult
		if err := s.http.Post(ctx, s.base+"/points/scroll", req, &resp); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil
			}
			return fmt.Errorf("qdrant: scroll: %w", err)
		}
		for _, p := range resp.Result.Points {
			fn(p)
			seen++
		}
		if resp.Result.NextPageOffset == nil || len(resp.Result.Points) == 0 {
			return nil
		}
		offset = resp.Result.NextPageOffset
	}
}

// buildFilter turns equality filters into a Qdrant must clause. Integer
// looking values also match integer payloads, since filter values are
// strings but chunk indexes are stored as numbers.
func buildFilter(filter map[string]string) map[string]any {
	if len(filter) == 0 {
		return nil
	}

	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	must := make([]any, 0, len(keys))
	for _, key := range keys {
		alts := filterAlternatives(key, filter[key])
		if len(alts) == 1 {
			must = append(must, alts[0])
			continue
		}
		must = append(must, map[string]any{"should": alts})
	}
	return map[string]any{"must": must}
}

// filterAlternatives lists the typed payload values that render as val.
// Qdrant matches keywords, integers and booleans by type, and floats only
// through a closed range.
func filterAlternatives(key, val string) []any {
	match := func(v any) any {
		return map[string]any{"key": key, "match": map[string]any{"value": v}}
	}

	alts := []any{match(val)}
	switch {
	case val == "true" || val == "false":
		alts = append(alts, match(val == "true"))
	default:
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			alts = append(alts, match(n))
		} else if f, err := strconv.ParseFloat(val, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
			alts = append(alts, map[string]any{"key": key, "range": map[string]any{"gte": f, "lte": f}})
		}
	}
	return alts
}

// splitPayload separates the adapter's reserved keys from user metadata.
func splitPayload(p scoredPoint) (id, text string, meta map[string]any) {
	meta = storage.CopyMetadata(p.Payload)
	text, _ = meta[payloadText].(string)
	id, _ = meta[payloadChunkID].(string)
	delete(meta, payloadText)
	delete(meta, payloadChunkID)
	if id == "" {
		id = fmt.Sprint(p.ID)
	}
	return id, text, meta
}
