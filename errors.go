package compose

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

// ErrContainerDisposed is returned when a disposed container is used.
var ErrContainerDisposed = errors.New("composition context already disposed")

// NoServiceRegisteredError represents a missing registration for a required contract.
type NoServiceRegisteredError struct {
	Contract string
	Name     string
}

func (e *NoServiceRegisteredError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("no service registered for contract %s named %q", e.Contract, e.Name)
	}
	return fmt.Sprintf("no service registered for contract: %s", e.Contract)
}

// AmbiguousServiceError represents a tie left after override priority filtering.
type AmbiguousServiceError struct {
	Contract   string
	Candidates []RegistrationInfo
}

func (e *AmbiguousServiceError) Error() string {
	parts := make([]string, len(e.Candidates))
	for i, c := range e.Candidates {
		parts[i] = fmt.Sprintf("%s (override %d, order %d)", c.Implementation, c.OverridePriority, c.Order)
	}
	return fmt.Sprintf("ambiguous services for contract %s: %s", e.Contract, strings.Join(parts, ", "))
}

// ConfigurationError represents a structurally invalid registration.
type ConfigurationError struct {
	Contract       string
	Implementation string
	Reason         string
	Err            error
}

func (e *ConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString("invalid configuration")
	if e.Contract != "" {
		fmt.Fprintf(&b, " for contract %s", e.Contract)
	}
	if e.Implementation != "" {
		fmt.Fprintf(&b, " implemented by %s", e.Implementation)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// CyclicDependencyError represents a construction chain revisiting a contract.
type CyclicDependencyError struct {
	Chain []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("cyclic dependency detected: %s", strings.Join(e.Chain, " -> "))
}

// FrozenCatalogError represents a registration attempted after Build.
type FrozenCatalogError struct {
	Contract string
}

func (e *FrozenCatalogError) Error() string {
	return fmt.Sprintf("catalog is frozen, cannot register contract: %s", e.Contract)
}

// DisposalError aggregates the failures raised while releasing a context's values.
type DisposalError struct {
	Scope string
	Err   error
}

func (e *DisposalError) Error() string {
	return fmt.Sprintf("disposal of context %s failed: %v", e.Scope, e.Err)
}

func (e *DisposalError) Unwrap() error {
	return e.Err
}

// Errors returns every individual release failure.
func (e *DisposalError) Errors() []error {
	return multierr.Errors(e.Err)
}

// InitializationError represents a service construction or initialization failure.
type InitializationError struct {
	Type string
	Err  error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("initialization failed for type %s: %v", e.Type, e.Err)
}

func (e *InitializationError) Unwrap() error {
	return e.Err
}

// TypeMismatchError represents a produced value that does not fit its contract.
type TypeMismatchError struct {
	Expected string
	Got      string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch: expected %s, got %s", e.Expected, e.Got)
}

// NilServiceError represents an attempt to register or produce a nil service.
type NilServiceError struct {
	Type string
}

func (e *NilServiceError) Error() string {
	return fmt.Sprintf("nil service provided for type: %s", e.Type)
}
