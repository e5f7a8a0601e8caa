package compose

// RegistrationInfo is a read-only description of a registration.
type RegistrationInfo struct {
	Contract           string   `json:"contract" yaml:"contract"`
	Implementation     string   `json:"implementation" yaml:"implementation"`
	Lifetime           Lifetime `json:"lifetime" yaml:"lifetime"`
	Name               string   `json:"name,omitempty" yaml:"name,omitempty"`
	ProcessingPriority int      `json:"processing_priority" yaml:"processing_priority"`
	OverridePriority   int      `json:"override_priority" yaml:"override_priority"`
	IsOverride         bool     `json:"is_override,omitempty" yaml:"is_override,omitempty"`
	Order              uint64   `json:"order" yaml:"order"`
	Metadata           Metadata `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	// Winner is set by Inspect on the registration Resolve would pick.
	Winner bool `json:"winner,omitempty" yaml:"winner,omitempty"`
}

func infoOf(r *Registration) RegistrationInfo {
	return RegistrationInfo{
		Contract:           r.matchContract().String(),
		Implementation:     r.Implementation(),
		Lifetime:           r.Lifetime,
		Name:               r.Name,
		ProcessingPriority: r.ProcessingPriority,
		OverridePriority:   r.OverridePriority,
		IsOverride:         r.IsOverride,
		Order:              r.order,
		Metadata:           r.Metadata.Clone(),
	}
}

// Registrations describes every registration in insertion order.
func (c *Catalog) Registrations() []RegistrationInfo {
	regs := c.registrations()
	out := make([]RegistrationInfo, len(regs))
	for i, r := range regs {
		out[i] = infoOf(r)
	}
	return out
}

// Inspect describes the registrations of contract in ResolveAll order and
// marks the one Resolve would pick. Under ForcePriority an unresolved tie
// leaves no winner marked.
func (c *Container) Inspect(contract Contract) ([]RegistrationInfo, error) {
	bs, err := c.catalog.candidates(contract)
	if err != nil {
		return nil, err
	}
	winner, _ := c.winner(contract, "")
	ordered := orderForAll(bs)
	out := make([]RegistrationInfo, len(ordered))
	for i, b := range ordered {
		out[i] = infoOf(b.reg)
		out[i].Contract = b.contract.String()
		out[i].Winner = winner != nil && winner.reg == b.reg
	}
	return out, nil
}
