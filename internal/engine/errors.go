package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrBackendUnavailable matches any *BackendUnavailableError.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrDeviceInit matches any *DeviceInitError.
	ErrDeviceInit = errors.New("device initialization failed")
)

// BackendUnavailableError reports that the library or tool a backend needs
// is not installed. It is not retried.
type BackendUnavailableError struct {
	Backend string
	Hint    string
	Err     error
}

func (e *BackendUnavailableError) Error() string {
	msg := fmt.Sprintf("%s backend not available", e.Backend)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Hint != "" {
		msg += ". " + e.Hint
	}
	return msg
}

func (e *BackendUnavailableError) Is(target error) bool {
	return target == ErrBackendUnavailable
}

func (e *BackendUnavailableError) Unwrap() error {
	return e.Err
}

// DeviceInitError reports that model construction failed on the preferred
// device and, when one was attempted, on the CPU fallback.
type DeviceInitError struct {
	Backend string
	Model   string
	GPUErr  error
	CPUErr  error
}

func (e *DeviceInitError) Error() string {
	switch {
	case e.GPUErr != nil && e.CPUErr != nil:
		return fmt.Sprintf("%s: load %s failed on GPU (%v) and CPU (%v)", e.Backend, e.Model, e.GPUErr, e.CPUErr)
	case e.CPUErr != nil:
		return fmt.Sprintf("%s: load %s failed: %v", e.Backend, e.Model, e.CPUErr)
	case e.GPUErr != nil:
		return fmt.Sprintf("%s: load %s failed on GPU: %v", e.Backend, e.Model, e.GPUErr)
	}
	return fmt.Sprintf("%s: load %s failed", e.Backend, e.Model)
}

func (e *DeviceInitError) Is(target error) bool {
	return target == ErrDeviceInit
}

func (e *DeviceInitError) Unwrap() []error {
	var errs []error
	if e.GPUErr != nil {
		errs = append(errs, e.GPUErr)
	}
	if e.CPUErr != nil {
		errs = append(errs, e.CPUErr)
	}
	return errs
}

// IsBackendUnavailable reports whether err is a missing-backend failure.
func IsBackendUnavailable(err error) bool {
	return errors.Is(err, ErrBackendUnavailable)
}

// IsDeviceInit reports whether err is a model construction failure.
func IsDeviceInit(err error) bool {
	return errors.Is(err, ErrDeviceInit)
}

// ErrReleased is returned when a handle is used after Resolver.Release.
var ErrReleased = errors.New("engine handle released")
