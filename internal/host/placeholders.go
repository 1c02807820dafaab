package host

import (
	"stratum/internal/value"
	"stratum/internal/verr"
	"stratum/internal/vm"
)

// RegisterPlaceholders adds the registry slots for §4.7/SPEC_FULL §4.7's
// collaborator value families (DataFrame, Cube, Gui): opaque capability sets
// the VM core never implements behavior for, only the registry slot they
// plug into. DataFrame and Cube are registered as importable modules with no
// methods yet, so `import "DataFrame"` resolves instead of raising NameError
// and a later embedder can fill in RegisterValueMethodHandler without
// touching internal/vm. Gui registers one real VM-method handler (`on`) to
// exercise §4.7's reentrancy requirement end to end: a host dispatcher
// calling back into a user-supplied closure via vm.VM.CallSync.
func RegisterPlaceholders(b *Bridge) {
	b.RegisterModule("DataFrame", value.NewOpaque("DataFrame", nil))
	b.RegisterModule("Cube", value.NewOpaque("Cube", nil))
	b.RegisterVMMethod("Gui", guiDispatch)
}

// guiDispatch implements the one Gui method this bridge actually runs: `on`
// registers a zero-argument callback and fires it immediately (there is no
// event loop behind this bridge, only the reentrant-call plumbing it
// exists to demonstrate).
func guiDispatch(machine *vm.VM, method string, args []value.Value) (value.Value, error) {
	switch method {
	case "on":
		if len(args) < 1 {
			return nil, verr.New(verr.ArityError, "Gui.on requires a callback argument")
		}
		return machine.CallSync(args[0], nil)
	}
	return nil, verr.Newf(verr.NameError, "Gui has no method %q", method)
}
