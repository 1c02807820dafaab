// Package host implements Stratum's host bridge (spec §4.7): the three
// registries the VM core defers to for anything that is not pure language
// semantics -- namespace functions (`time`, `fmaths`, ...), modules importable
// by name, and per-type-name method handlers for opaque host values
// (DataFrame, Cube, Gui, Expectation, ...).
//
// It generalizes the teacher's builtinModules() (runtime/interpreter.go),
// which built one *MapVal per module inline inside the interpreter and
// returned it from a single hard-coded function, into a registry a host
// embedder populates at startup (cmd/stratum) instead of a function the
// language core would otherwise have to know about. internal/vm never
// imports this package -- it only sees the vm.HostBridge interface -- so a
// host module can depend on internal/vm without an import cycle.
package host

import (
	"stratum/internal/value"
	"stratum/internal/verr"
	"stratum/internal/vm"
)

// NamespaceFunc answers one `namespace.method(args...)` call (§4.7 registry
// 1) without needing access to the running VM.
type NamespaceFunc func(method string, args []value.Value) (value.Value, error)

// VMMethodFunc is a NamespaceFunc that additionally needs to call back into
// the VM -- e.g. a Gui event registration invoking a user-supplied closure
// (§4.7: "host dispatchers must be reentrant").
type VMMethodFunc func(machine *vm.VM, method string, args []value.Value) (value.Value, error)

// ValueMethodFunc answers a method call against a host-owned receiver value
// (an Opaque, an EnumVariant, or the builtin Expectation), keyed by its
// type-name string (§4.7 registry 3).
type ValueMethodFunc func(recv value.Value, method string, args []value.Value) (value.Value, error)

// Bridge implements vm.HostBridge. It is safe for a single VM; the embedder
// registers everything it needs before the first Run.
type Bridge struct {
	machine *vm.VM

	namespaces   map[string]NamespaceFunc
	vmNamespaces map[string]VMMethodFunc
	modules      map[string]value.Value
	valueMethods map[string]ValueMethodFunc
}

// NewBridge constructs an empty Bridge. Use the Register* methods to fill it
// in, then BindVM once the VM it backs has been constructed.
func NewBridge() *Bridge {
	return &Bridge{
		namespaces:   map[string]NamespaceFunc{},
		vmNamespaces: map[string]VMMethodFunc{},
		modules:      map[string]value.Value{},
		valueMethods: map[string]ValueMethodFunc{},
	}
}

// BindVM supplies the live VM a VMMethodFunc may call back into. It must run
// after vm.New(Config{Host: bridge}), since the VM doesn't exist yet at the
// point the Config is built -- the two-phase wiring this chicken-and-egg
// forces (cmd/stratum: NewBridge, vm.New, then BindVM).
func (b *Bridge) BindVM(machine *vm.VM) { b.machine = machine }

// RegisterNamespace adds a VM-independent `namespace.method` handler (§4.7
// registry 1), reached from Stratum source via `import "name"` followed by a
// method call on the imported value (every host namespace is also its own
// single-entry Module).
func (b *Bridge) RegisterNamespace(name string, fn NamespaceFunc) {
	b.namespaces[name] = fn
	b.modules[name] = value.NewOpaque(name, nil)
	b.valueMethods[name] = func(_ value.Value, method string, args []value.Value) (value.Value, error) {
		return fn(method, args)
	}
}

// RegisterVMMethod adds a namespace whose methods need to call back into the
// VM (e.g. Gui event wiring).
func (b *Bridge) RegisterVMMethod(name string, fn VMMethodFunc) {
	b.vmNamespaces[name] = fn
	b.modules[name] = value.NewOpaque(name, nil)
	b.valueMethods[name] = func(_ value.Value, method string, args []value.Value) (value.Value, error) {
		if b.machine == nil {
			return nil, verr.Newf(verr.InternalError, "host bridge used before BindVM for namespace %q", name)
		}
		return fn(b.machine, method, args)
	}
}

// RegisterModule adds a plain importable value with no namespace-call
// behavior of its own (a constants table, a placeholder capability handle).
func (b *Bridge) RegisterModule(name string, v value.Value) {
	b.modules[name] = v
}

// RegisterValueMethodHandler adds a type-name-keyed method handler (§4.7
// registry 3), reached when a method call's receiver fails the VM's own
// lookupUserMethod step (it is not a *value.Struct field holding a closure).
func (b *Bridge) RegisterValueMethodHandler(typeName string, fn ValueMethodFunc) {
	b.valueMethods[typeName] = fn
}

// CallNamespace implements vm.HostBridge (§4.7 registry 1, OP_CALL_HOST).
// name is the combined "Namespace.method" string the VM passes verbatim. The
// compiler emits OP_CALL_HOST only for println/print and for io.str in string
// interpolation; member-style calls on an imported module go through
// import + method-call instead, landing in Dispatch below.
func (b *Bridge) CallNamespace(name string, args []value.Value) (value.Value, error) {
	namespace, method, err := splitQualified(name)
	if err != nil {
		return nil, err
	}
	if fn, ok := b.namespaces[namespace]; ok {
		return fn(method, args)
	}
	if fn, ok := b.vmNamespaces[namespace]; ok {
		if b.machine == nil {
			return nil, verr.Newf(verr.InternalError, "host bridge used before BindVM for namespace %q", namespace)
		}
		return fn(b.machine, method, args)
	}
	return nil, verr.Newf(verr.NameError, "no host namespace %q", namespace)
}

// Module implements vm.HostBridge for `import name` / OP_GET_MODULE.
func (b *Bridge) Module(name string) (value.Value, error) {
	m, ok := b.modules[name]
	if !ok {
		return nil, verr.Newf(verr.NameError, "no host module %q", name)
	}
	return m, nil
}

// Dispatch implements vm.HostBridge's fallback step of §4.7's method lookup
// order. The VM only reaches this after its own lookupUserMethod has already
// failed, so Dispatch never needs to re-check for a user struct method --
// only the registered type-name handler, keyed by the receiver's dynamic
// type name.
func (b *Bridge) Dispatch(recv value.Value, method string, args []value.Value) (value.Value, error) {
	typeName, ok := typeNameOf(recv)
	if !ok {
		return nil, verr.Newf(verr.AttributeError, "no method %q on %s", method, recv.Type())
	}
	fn, ok := b.valueMethods[typeName]
	if !ok {
		return nil, verr.Newf(verr.AttributeError, "no method %q on %s", method, typeName)
	}
	return fn(recv, method, args)
}

// typeNameOf extracts the registry-3 lookup key for a host-dispatched
// receiver (§4.7, §9 "Opaque host values"): an Opaque's own type name, an
// EnumVariant's declared type name, or the literal "Expectation" for the
// test-assertion value produced by `expect(x)`.
func typeNameOf(recv value.Value) (string, bool) {
	switch r := recv.(type) {
	case *value.Opaque:
		return r.TypeName, true
	case *value.EnumVariant:
		return r.TypeName, true
	case *value.Expectation:
		return "Expectation", true
	default:
		return "", false
	}
}

// splitQualified pulls "namespace.method" apart for CallNamespace's combined
// name string.
func splitQualified(name string) (namespace, method string, err error) {
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			return name[:i], name[i+1:], nil
		}
	}
	return "", "", verr.Newf(verr.InternalError, "malformed host call name %q", name)
}
