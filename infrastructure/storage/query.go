package storage

import (
	"alumni-chat/contract"
	"cmp"
	"slices"
	"strings"
)

// matches applies every filter. A document missing a filtered field never matches.
func matches(doc contract.Document, filters []contract.Filter) bool {
	for _, f := range filters {
		value, ok := doc.Fields[f.Field]
		if !ok {
			return false
		}
		c, comparable := compare(value, f.Value)
		if !comparable {
			return false
		}
		switch f.Op {
		case contract.OpEqual:
			if c != 0 {
				return false
			}
		case contract.OpGreater:
			if c <= 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// order sorts documents on field. Documents without the field are dropped.
// Ties keep path order, and generated ids sort by creation.
func order(docs []contract.Document, field string, descending bool) []contract.Document {
	if field == "" {
		return docs
	}
	kept := slices.DeleteFunc(docs, func(d contract.Document) bool { return !d.Has(field) })
	slices.SortStableFunc(kept, func(a, b contract.Document) int {
		c, _ := compare(a.Fields[field], b.Fields[field])
		if c == 0 {
			c = strings.Compare(a.Path, b.Path)
		}
		if descending {
			return -c
		}
		return c
	})
	return kept
}

// compare orders two field values. Numbers of any Go kind compare as float64.
func compare(a, b any) (int, bool) {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		return cmp.Compare(fa, fb), true
	}
	switch va := a.(type) {
	case string:
		vb, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(va, vb), true
	case bool:
		vb, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case va == vb:
			return 0, true
		case !va:
			return -1, true
		default:
			return 1, true
		}
	default:
		return 0, false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
