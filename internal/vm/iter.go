package vm

import (
	"stratum/internal/value"
	"stratum/internal/verr"
)

// makeIterator builds the resumable cursor ITER_INIT pushes, covering every
// source §4.2.2 names: Range, List, Map (entries, as a 2-element List per
// pair), Set, and String (by rune).
func (vm *VM) makeIterator(src value.Value) (*value.Iterator, error) {
	switch s := src.(type) {
	case value.Range:
		i := s.Start
		limit := s.End
		inclusive := s.Inclusive
		return value.NewIterator("range", func() (value.Value, bool) {
			if (inclusive && i > limit) || (!inclusive && i >= limit) {
				return value.NullValue, false
			}
			v := value.Int(i)
			i++
			return v, true
		}), nil
	case *value.List:
		idx := 0
		return value.NewIterator("list", func() (value.Value, bool) {
			if idx >= s.Len() {
				return value.NullValue, false
			}
			v, _ := s.Get(idx)
			idx++
			return v, true
		}), nil
	case *value.Map:
		keys := s.Keys()
		idx := 0
		return value.NewIterator("map", func() (value.Value, bool) {
			if idx >= len(keys) {
				return value.NullValue, false
			}
			k := keys[idx]
			idx++
			v, _ := s.Get(k)
			pair := value.NewList([]value.Value{k.Value(), v})
			vm.collector.Track(pair)
			return pair, true
		}), nil
	case *value.Set:
		items := s.Items()
		idx := 0
		return value.NewIterator("set", func() (value.Value, bool) {
			if idx >= len(items) {
				return value.NullValue, false
			}
			v := items[idx].Value()
			idx++
			return v, true
		}), nil
	case value.String:
		runes := []rune(string(s))
		idx := 0
		return value.NewIterator("string", func() (value.Value, bool) {
			if idx >= len(runes) {
				return value.NullValue, false
			}
			v := value.String(string(runes[idx]))
			idx++
			return v, true
		}), nil
	default:
		return nil, verr.Newf(verr.TypeError, "%s is not iterable", src.Type())
	}
}
