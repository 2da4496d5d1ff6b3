//go:build !cgo

package native

import "github.com/reglet-dev/native-counter/domain/ports"

// NewBindings always fails without cgo.
func NewBindings() (ports.CounterBindings, error) {
	return nil, ErrUnavailable
}
