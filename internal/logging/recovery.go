package logging

import (
	"fmt"
	"runtime/debug"
)

// RecoveryHandler turns panics into logged errors for a component.
type RecoveryHandler struct {
	Component string
	Logger    *Logger
	OnPanic   func(err any, stack string)
}

// NewRecoveryHandler creates a recovery handler for a component
func NewRecoveryHandler(component string, logger *Logger) *RecoveryHandler {
	if logger == nil {
		logger = Nop()
	}
	return &RecoveryHandler{
		Component: component,
		Logger:    logger,
	}
}

// Wrap executes fn with panic recovery
func (r *RecoveryHandler) Wrap(fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			r.handlePanic(rec, string(debug.Stack()))
		}
	}()
	fn()
}

// WrapError executes fn with panic recovery, returning error on panic
func (r *RecoveryHandler) WrapError(fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = r.handlePanic(rec, string(debug.Stack()))
		}
	}()
	return fn()
}

func (r *RecoveryHandler) handlePanic(rec any, stack string) error {
	err := fmt.Errorf("panic in %s: %v", r.Component, rec)

	r.Logger.Error("panic_recovered", map[string]any{
		"component": r.Component,
		"stack":     stack,
	}, err)

	if r.OnPanic != nil {
		r.OnPanic(rec, stack)
	}
	return err
}
