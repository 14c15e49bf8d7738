package output

import (
	"errors"

	"github.com/tkjaer/ifmtu/internal/shared"
)

// Output interface for different output types
type Output interface {
	Write(result shared.Result) error
	Close() error
}

// OutputManager manages multiple outputs
type OutputManager struct {
	outputs []Output
}

func (om *OutputManager) Register(o Output) {
	om.outputs = append(om.outputs, o)
}

// Write hands the result to every output, even after one of them fails.
func (om *OutputManager) Write(result shared.Result) error {
	var errs []error
	for _, o := range om.outputs {
		if err := o.Write(result); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (om *OutputManager) Close() error {
	var errs []error
	for _, o := range om.outputs {
		if err := o.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
