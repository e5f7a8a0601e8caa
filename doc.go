// Package compose is a service composition engine. A Catalog collects
// registrations that bind contracts to implementations; Build freezes it into
// a root Container that decides, for each requested contract, which
// registrations to instantiate, in what order and under which lifetime.
//
// Single-instance contracts resolve to one winner: the lowest override
// priority, with ties settled by the AmbiguityStrategy. Multi-instance
// contracts resolve to every registration, ordered by processing priority.
// Values are Transient, Scoped to one Container, or Singleton across the
// tree created with CreateScope.
package compose
