// Package native binds the counter wrapper to a C counter engine through cgo.
//
// The engine is compiled into the package, so no shared library has to be
// installed. Without cgo, NewBindings returns ErrUnavailable.
package native

import "errors"

// Backend is the label this package reports in errors and metrics.
const Backend = "cgo"

// ErrUnavailable is returned by NewBindings when the binary was built without cgo.
var ErrUnavailable = errors.New("native: cgo counter engine not available in this build")
