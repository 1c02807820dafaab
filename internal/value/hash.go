package value

import "fmt"

// HashKey is the Go-map-friendly representation of a HashableValue (§3.1):
// "the subset usable as map keys: Null, Bool, Int, and interned String
// handles; Float is deliberately excluded." It is a small comparable struct
// so Map/Set can key Go maps / golang-set sets on it directly instead of
// hand-rolling a hash function the way the teacher's *MapVal did (string
// keys only).
type HashKey struct {
	kind Type
	i    int64
	s    string
}

// ToHashKey converts a Value to a HashKey, reporting ok=false for variants
// spec §3.1 excludes from HashableValue (Float and every container/opaque
// variant).
func ToHashKey(v Value) (HashKey, bool) {
	switch t := v.(type) {
	case Null:
		return HashKey{kind: TNull}, true
	case Bool:
		i := int64(0)
		if t {
			i = 1
		}
		return HashKey{kind: TBool, i: i}, true
	case Int:
		return HashKey{kind: TInt, i: int64(t)}, true
	case String:
		return HashKey{kind: TString, s: string(t)}, true
	default:
		return HashKey{}, false
	}
}

// Value reconstructs the Value a HashKey was built from, so Map iteration
// and coverage/debug snapshots can present real keys rather than the opaque
// struct.
func (k HashKey) Value() Value {
	switch k.kind {
	case TNull:
		return NullValue
	case TBool:
		return Bool(k.i != 0)
	case TInt:
		return Int(k.i)
	case TString:
		return String(k.s)
	default:
		return NullValue
	}
}

func (k HashKey) String() string {
	return fmt.Sprintf("%s", k.Value())
}

// IsStringKey reports whether this key came from an interned String. The
// cycle collector's mark pass does not walk keys: a String key is a plain Go
// string with no container payload (see Map.Children).
func (k HashKey) IsStringKey() bool { return k.kind == TString }
