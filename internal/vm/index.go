package vm

import (
	"stratum/internal/value"
	"stratum/internal/verr"
)

// getIndex implements the Index opcode family (§4.2.2) over List, Map, and
// String, plus Range membership via the same opcode as a convenience
// (`range[i]` yields the i-th Int the range would produce).
func getIndex(recv, idx value.Value) (value.Value, error) {
	switch r := recv.(type) {
	case *value.List:
		i, ok := idx.(value.Int)
		if !ok {
			return nil, verr.Newf(verr.TypeError, "list index must be Int, got %s", idx.Type())
		}
		v, ok := r.Get(int(i))
		if !ok {
			return nil, verr.Newf(verr.IndexError, "list index %d out of range (len %d)", i, r.Len())
		}
		return v, nil
	case *value.Map:
		k, ok := value.ToHashKey(idx)
		if !ok {
			return nil, verr.Newf(verr.TypeError, "%s is not hashable", idx.Type())
		}
		v, ok := r.Get(k)
		if !ok {
			return nil, verr.Newf(verr.KeyError, "key %s not found", idx)
		}
		return v, nil
	case value.String:
		i, ok := idx.(value.Int)
		if !ok {
			return nil, verr.Newf(verr.TypeError, "string index must be Int, got %s", idx.Type())
		}
		runes := []rune(string(r))
		if int(i) < 0 || int(i) >= len(runes) {
			return nil, verr.Newf(verr.IndexError, "string index %d out of range (len %d)", i, len(runes))
		}
		return value.String(string(runes[i])), nil
	case value.Range:
		i, ok := idx.(value.Int)
		if !ok {
			return nil, verr.Newf(verr.TypeError, "range index must be Int, got %s", idx.Type())
		}
		if int64(i) < 0 || int64(i) >= r.Len() {
			return nil, verr.Newf(verr.IndexError, "range index %d out of range (len %d)", i, r.Len())
		}
		return value.Int(r.Start + int64(i)), nil
	default:
		return nil, verr.Newf(verr.TypeError, "%s is not indexable", recv.Type())
	}
}

func setIndex(recv, idx, v value.Value) error {
	switch r := recv.(type) {
	case *value.List:
		i, ok := idx.(value.Int)
		if !ok {
			return verr.Newf(verr.TypeError, "list index must be Int, got %s", idx.Type())
		}
		if err := r.Set(int(i), v); err != nil {
			return verr.Wrap(err, "set index")
		}
		return nil
	case *value.Map:
		k, ok := value.ToHashKey(idx)
		if !ok {
			return verr.Newf(verr.TypeError, "%s is not hashable", idx.Type())
		}
		if err := r.Set(k, v); err != nil {
			return verr.Wrap(err, "set index")
		}
		return nil
	default:
		return verr.Newf(verr.TypeError, "%s does not support item assignment", recv.Type())
	}
}
