package sample

import (
	"reflect"
	"slices"

	"github.com/centraunit/compose"
)

// Register adds the explicit registrations of the sample application.
func Register(catalog *compose.Catalog) error {
	if err := catalog.Add(compose.ContractOf[*CurrentUser](), compose.TypeOf[*CurrentUser](), compose.AsScoped()); err != nil {
		return err
	}
	if err := catalog.Add(compose.ContractOf[*GameManager](), compose.TypeOf[*GameManager](compose.Ctor(NewGameManager)), compose.AsScoped()); err != nil {
		return err
	}
	if err := catalog.Add(compose.ContractOf[*Pipeline](), compose.TypeOf[*Pipeline](compose.Ctor(NewPipeline))); err != nil {
		return err
	}
	return catalog.Add(GenericSvcShape.Open(), compose.GenericType(genericImplShape, closeGenericImpl), compose.AsSingleton())
}

// Candidates lists the implementation types offered to convention registrars.
func Candidates() []reflect.Type {
	return slices.Concat(operationCandidates(), connectionCandidates())
}

// Conventions returns the registrars binding the candidates to their contracts.
func Conventions() []compose.Registrar {
	return []compose.Registrar{
		compose.ImplementationsOf(compose.ContractOf[Operation](),
			compose.ConventionAllowMultiple(),
			compose.ConventionLifetime(compose.Transient)),
		compose.ImplementationsOf(compose.ContractOf[ConnectionFactory](),
			compose.ConventionAllowMultiple(),
			compose.ConventionNamed(),
			compose.ConventionMetadata(connectionMetadata)),
	}
}

// Build registers the sample into a new catalog and builds its root context.
func Build(catalogOpts []compose.CatalogOption, opts ...compose.Option) (*compose.Container, error) {
	catalog := compose.NewCatalog(catalogOpts...)
	if err := Register(catalog); err != nil {
		return nil, err
	}
	opts = append([]compose.Option{compose.WithConventions(Candidates(), Conventions()...)}, opts...)
	return compose.Build(catalog, opts...)
}

// Contracts lists the closed contracts of the sample, in the order composectl
// inspects them.
func Contracts() []compose.Contract {
	return []compose.Contract{
		compose.ContractOf[*CurrentUser](),
		compose.ContractOf[*GameManager](),
		compose.ContractOf[*Pipeline](),
		compose.ContractOf[Operation](),
		compose.ContractOf[ConnectionFactory](),
		GenericSvcOf[int](),
		GenericSvcOf[string](),
	}
}
