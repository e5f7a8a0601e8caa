package compose

import (
	"fmt"
	"reflect"
	"strings"

	"go.uber.org/zap"
)

// MetadataTypeName is filled in by ImplementationsOf with the implementation's
// type name stripped of the contract's name, e.g. "Sql" for SqlConnectionFactory
// registered under ConnectionFactory.
const MetadataTypeName = "TypeName"

// BuildContext is handed to registrars while the catalog is still mutable.
type BuildContext struct {
	Catalog *Catalog
	Logger  *zap.Logger
}

// TypeFilter selects candidate types for convention registrars.
type TypeFilter func(t reflect.Type) bool

// ApplyConventions runs registrars over the candidates accepted by filter.
// A nil filter accepts every candidate.
func (c *Catalog) ApplyConventions(candidates []reflect.Type, filter TypeFilter, registrars ...Registrar) error {
	if c.Frozen() {
		return &FrozenCatalogError{Contract: "conventions"}
	}

	selected := make([]reflect.Type, 0, len(candidates))
	for _, t := range candidates {
		if t != nil && (filter == nil || filter(t)) {
			selected = append(selected, t)
		}
	}

	bc := &BuildContext{Catalog: c, Logger: c.logger}
	for i, r := range registrars {
		if r == nil {
			continue
		}
		before := c.Len()
		if err := r.Apply(selected, bc); err != nil {
			return fmt.Errorf("apply registrar %d: %w", i, err)
		}
		c.logger.Debug("registrar applied",
			zap.Int("candidates", len(selected)),
			zap.Int("registered", c.Len()-before),
		)
	}
	return nil
}

type convention struct {
	contract Contract
	lifetime Lifetime
	multiple bool
	named    bool
	metadata func(reflect.Type) Metadata
}

// ConventionOption configures ImplementationsOf.
type ConventionOption func(*convention)

// ConventionLifetime sets the lifetime of emitted registrations. Default Singleton.
func ConventionLifetime(l Lifetime) ConventionOption {
	return func(c *convention) { c.lifetime = l }
}

// ConventionAllowMultiple marks the contract as multi-instance.
func ConventionAllowMultiple() ConventionOption {
	return func(c *convention) { c.multiple = true }
}

// ConventionNamed registers each implementation under its lowercased type
// name, as found in MetadataTypeName.
func ConventionNamed() ConventionOption {
	return func(c *convention) { c.named = true }
}

// ConventionMetadata adds metadata computed from the implementation type.
func ConventionMetadata(fn func(t reflect.Type) Metadata) ConventionOption {
	return func(c *convention) { c.metadata = fn }
}

// ImplementationsOf returns a registrar binding every concrete candidate that
// implements contract to it. A candidate whose zero value implements
// Prioritized or Overriding contributes its priorities.
func ImplementationsOf(contract Contract, opts ...ConventionOption) Registrar {
	conv := &convention{contract: contract, lifetime: Singleton}
	for _, opt := range opts {
		opt(conv)
	}
	return RegistrarFunc(conv.apply)
}

func (conv *convention) apply(candidates []reflect.Type, bc *BuildContext) error {
	target := conv.contract.Type()
	if target == nil {
		return &ConfigurationError{Contract: conv.contract.String(), Reason: "conventions need a closed, non-generic contract"}
	}
	if conv.multiple {
		if err := bc.Catalog.AllowMultiple(conv.contract); err != nil {
			return err
		}
	}

	for _, t := range candidates {
		if t.Kind() == reflect.Interface || !t.AssignableTo(target) {
			continue
		}
		reg := Registration{
			Contract: conv.contract,
			Strategy: TypeFor(t),
			Lifetime: conv.lifetime,
			Metadata: Metadata{MetadataTypeName: conventionName(t, target)},
		}
		if conv.named {
			reg.Name = strings.ToLower(reg.Metadata.String(MetadataTypeName))
		}
		if conv.metadata != nil {
			for k, v := range conv.metadata(t) {
				reg.Metadata[k] = v
			}
		}
		if probe, ok := zeroValue(t); ok {
			if p, ok := probe.(Prioritized); ok {
				reg.ProcessingPriority = p.ProcessingPriority()
			}
			if o, ok := probe.(Overriding); ok {
				reg.OverridePriority = o.OverridePriority()
				reg.IsOverride = true
			}
		}
		if _, err := bc.Catalog.Register(reg); err != nil {
			return err
		}
		bc.Logger.Debug("convention registration",
			zap.Stringer("contract", conv.contract),
			zap.Stringer("implementation", t),
		)
	}
	return nil
}

func conventionName(t, contract reflect.Type) string {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := strings.TrimSuffix(t.Name(), contract.Name())
	if name == "" {
		return t.Name()
	}
	return name
}

func zeroValue(t reflect.Type) (any, bool) {
	switch {
	case t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct:
		return reflect.New(t.Elem()).Interface(), true
	case t.Kind() == reflect.Struct:
		return reflect.Zero(t).Interface(), true
	}
	return nil, false
}
