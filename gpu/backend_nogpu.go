//go:build nogpu

package gpu

import (
	"errors"

	fracstream "github.com/fracstream/fracstream"
)

// Backend is a stub in nogpu builds; New always fails and callers fall back
// to the scalar path.
type Backend struct{}

func New() (*Backend, error) {
	return nil, errors.New("gpu: built without GPU support")
}

func (*Backend) Render(fracstream.RenderPayload, fracstream.FormulaKind) ([]byte, error) {
	return nil, errors.New("gpu: built without GPU support")
}

func (*Backend) Close() {}
