package storage

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// CosineDistance returns 1 - cos(a, b). Zero vectors are at distance 1
// from everything.
func CosineDistance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: vector dimension %d does not match %d", domain.ErrInvalidInput, len(a), len(b))
	}

	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 1, nil
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb)), nil
}

// MetadataString renders a metadata value the way filters compare it.
// Integral floats print without a fraction so a JSON round trip does not
// change how a chunk index matches.
func MetadataString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1e15 {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return MetadataString(float64(x))
	default:
		return fmt.Sprint(x)
	}
}

// MatchesFilter reports whether every filter entry equals the metadata value.
func MatchesFilter(meta map[string]any, filter map[string]string) bool {
	for key, want := range filter {
		got, ok := meta[key]
		if !ok || MetadataString(got) != want {
			return false
		}
	}
	return true
}

// TopK sorts hits by ascending distance and truncates to k. Ties keep their
// input order.
func TopK(hits []driven.VectorHit, k int) []driven.VectorHit {
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	if k >= 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// CopyMetadata returns a shallow copy so callers cannot mutate stored maps.
func CopyMetadata(meta map[string]any) map[string]any {
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}
