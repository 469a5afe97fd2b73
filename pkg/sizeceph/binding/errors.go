package binding

import "errors"

// errNotFound and errIO are the two failure modes this package can report on
// its own; callers (pkg/sizeceph) translate these into ecplugin.Status
// values rather than this package depending on ecplugin directly.
var (
	errNotFound = errors.New("sizeceph binding: native library not loaded or symbol unresolved")
	errIO       = errors.New("sizeceph binding: size_restore reported failure")
)
