package compose

import (
	"fmt"
	"slices"
	"strings"
)

// AmbiguityStrategy settles single-instance contracts whose competing
// registrations tie at the lowest override priority.
type AmbiguityStrategy int

const (
	// UseLast picks the most recently registered candidate.
	UseLast AmbiguityStrategy = iota
	// UseFirst picks the earliest registered candidate.
	UseFirst
	// ForcePriority refuses to pick and fails with AmbiguousServiceError.
	ForcePriority
)

func (s AmbiguityStrategy) String() string {
	switch s {
	case UseLast:
		return "use-last"
	case UseFirst:
		return "use-first"
	case ForcePriority:
		return "force-priority"
	default:
		return fmt.Sprintf("AmbiguityStrategy(%d)", int(s))
	}
}

// ParseAmbiguityStrategy parses the textual form used in configuration files.
// Matching ignores case, dashes and underscores; the empty string is UseLast.
func ParseAmbiguityStrategy(s string) (AmbiguityStrategy, error) {
	norm := strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(s))
	switch norm {
	case "", "uselast", "last":
		return UseLast, nil
	case "usefirst", "first":
		return UseFirst, nil
	case "forcepriority", "force":
		return ForcePriority, nil
	}
	return UseLast, &ConfigurationError{Reason: fmt.Sprintf("unknown ambiguity strategy %q", s)}
}

// MarshalText implements encoding.TextMarshaler.
func (s AmbiguityStrategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *AmbiguityStrategy) UnmarshalText(text []byte) error {
	v, err := ParseAmbiguityStrategy(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// filterByName keeps the bindings registered under name. An empty name keeps all.
func filterByName(bs []*binding, name string) []*binding {
	if name == "" {
		return bs
	}
	out := make([]*binding, 0, len(bs))
	for _, b := range bs {
		if b.reg.Name == name {
			out = append(out, b)
		}
	}
	return out
}

// selectWinner picks the single registration for a single-instance contract.
// Candidates must be in registration order.
func selectWinner(contract Contract, bs []*binding, strategy AmbiguityStrategy) (*binding, error) {
	switch len(bs) {
	case 0:
		return nil, &NoServiceRegisteredError{Contract: contract.String()}
	case 1:
		return bs[0], nil
	}

	lowest := bs[0].reg.OverridePriority
	for _, b := range bs[1:] {
		lowest = min(lowest, b.reg.OverridePriority)
	}
	tied := make([]*binding, 0, len(bs))
	for _, b := range bs {
		if b.reg.OverridePriority == lowest {
			tied = append(tied, b)
		}
	}
	if len(tied) == 1 {
		return tied[0], nil
	}

	switch strategy {
	case UseFirst:
		return slices.MinFunc(tied, byOrder), nil
	case ForcePriority:
		err := &AmbiguousServiceError{Contract: contract.String()}
		for _, b := range tied {
			err.Candidates = append(err.Candidates, infoOf(b.reg))
		}
		return nil, err
	default:
		return slices.MaxFunc(tied, byOrder), nil
	}
}

// orderForAll sorts multi-instance candidates by processing priority, then
// registration order.
func orderForAll(bs []*binding) []*binding {
	out := slices.Clone(bs)
	slices.SortStableFunc(out, func(a, b *binding) int {
		if a.reg.ProcessingPriority != b.reg.ProcessingPriority {
			if a.reg.ProcessingPriority < b.reg.ProcessingPriority {
				return -1
			}
			return 1
		}
		return byOrder(a, b)
	})
	return out
}

func byOrder(a, b *binding) int {
	switch {
	case a.reg.order < b.reg.order:
		return -1
	case a.reg.order > b.reg.order:
		return 1
	}
	return 0
}
