package database

import (
	"cmp"
	"fmt"
	"sort"
	"time"
)

// KeyCount is the number of rows sharing one key value.
type KeyCount struct {
	Key   any
	Count int64
}

// CountBy groups rs by column and counts the rows per key. The result is
// sorted by key ascending: numerically for numbers, lexicographically for
// text, false before true, chronologically for times. NULL keys sort last.
// Keys of mixed kinds cannot be ordered and are rejected.
func CountBy(rs *RowSet, column string) ([]KeyCount, error) {
	if rs.Len() > 0 && !rs.HasColumn(column) {
		return nil, fmt.Errorf("column %q not in result", column)
	}

	counts := make(map[any]int64)
	keys := make([]any, 0)
	for i := 0; i < rs.Len(); i++ {
		key := normalizeKey(rs.Record(i).Value(column))
		if _, ok := counts[key]; !ok {
			keys = append(keys, key)
		}
		counts[key]++
	}

	var sortErr error
	sort.SliceStable(keys, func(i, j int) bool {
		c, err := compareKeys(keys[i], keys[j])
		if err != nil && sortErr == nil {
			sortErr = err
		}
		return c < 0
	})
	if sortErr != nil {
		return nil, sortErr
	}

	out := make([]KeyCount, 0, len(keys))
	for _, k := range keys {
		out = append(out, KeyCount{Key: k, Count: counts[k]})
	}
	return out, nil
}

func compareKeys(a, b any) (int, error) {
	switch {
	case a == nil && b == nil:
		return 0, nil
	case a == nil:
		return 1, nil
	case b == nil:
		return -1, nil
	}

	switch x := a.(type) {
	case int64:
		switch y := b.(type) {
		case int64:
			return cmp.Compare(x, y), nil
		case float64:
			return cmp.Compare(float64(x), y), nil
		}
	case float64:
		switch y := b.(type) {
		case float64:
			return cmp.Compare(x, y), nil
		case int64:
			return cmp.Compare(x, float64(y)), nil
		}
	case string:
		if y, ok := b.(string); ok {
			return cmp.Compare(x, y), nil
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0, nil
			case !x:
				return -1, nil
			default:
				return 1, nil
			}
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y), nil
		}
	}

	return 0, fmt.Errorf("cannot order keys of type %T and %T", a, b)
}
