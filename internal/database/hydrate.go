package database

import (
	"fmt"
	"math"

	"github.com/jackc/pgx/v5/pgtype"
)

// Nested is a parent record with its child records in row-set order.
// Children is never nil.
type Nested[P, C any] struct {
	Parent   P
	Children []C
}

// Hydrator nests the rows of a parent LEFT JOIN child row-set. Unmatched
// parents appear once with a NULL child key and get an empty collection.
type Hydrator[P, C any] struct {
	ParentKey string
	ChildKey  string
	Parent    func(*Record) (P, error)
	Child     func(*Record) (C, error)
}

// Hydrate walks rs once, opening a parent whenever the parent key changes.
// Rows of one parent must be contiguous; a parent key that reappears after
// another one fails with ErrNonContiguousRows.
func (h Hydrator[P, C]) Hydrate(rs *RowSet) ([]Nested[P, C], error) {
	out := make([]Nested[P, C], 0)
	seen := make(map[any]struct{})

	current := -1
	var currentKey any

	for i := 0; i < rs.Len(); i++ {
		rec := rs.Record(i)

		key := normalizeKey(rec.Value(h.ParentKey))
		if key == nil {
			return nil, fmt.Errorf("row %d: parent key %q is null", i, h.ParentKey)
		}

		if current < 0 || key != currentKey {
			if _, dup := seen[key]; dup {
				return nil, fmt.Errorf("%w: %s=%v", ErrNonContiguousRows, h.ParentKey, key)
			}
			seen[key] = struct{}{}

			parent, err := h.Parent(rec)
			if err != nil {
				return nil, fmt.Errorf("row %d: parent: %w", i, err)
			}
			out = append(out, Nested[P, C]{Parent: parent, Children: make([]C, 0)})
			current = len(out) - 1
			currentKey = key
		}

		if rec.IsNull(h.ChildKey) {
			continue
		}

		child, err := h.Child(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: child: %w", i, err)
		}
		out[current].Children = append(out[current].Children, child)
	}

	return out, nil
}

// normalizeKey folds numeric representations together so keys compare by
// value and can be used as map keys.
func normalizeKey(v any) any {
	switch k := v.(type) {
	case nil:
		return nil
	case int64, int32, int16, int8, int, uint32:
		n, _ := toInt64(k)
		return n
	case float32:
		return float64(k)
	case pgtype.Numeric:
		if !k.Valid {
			return nil
		}
		f, err := toFloat64(k)
		if err != nil {
			return v
		}
		if f == math.Trunc(f) {
			return int64(f)
		}
		return f
	case []byte:
		return string(k)
	default:
		return v
	}
}
