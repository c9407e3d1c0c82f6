package gateway

import (
	"sort"
	"strings"

	pkgerrors "github.com/agricdeck/agricdeck-backend/pkg/errors"
)

// Registry maps provider names to their PaymentGateway implementation.
type Registry struct {
	gateways map[string]PaymentGateway
}

// NewRegistry indexes the provided gateways by Name().
func NewRegistry(gateways ...PaymentGateway) *Registry {
	indexed := make(map[string]PaymentGateway, len(gateways))
	for _, g := range gateways {
		if g == nil {
			continue
		}
		indexed[strings.ToLower(g.Name())] = g
	}
	return &Registry{gateways: indexed}
}

// Get resolves a gateway by provider name.
func (r *Registry) Get(name string) (PaymentGateway, error) {
	g, ok := r.gateways[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment gateway").
			WithDetails(map[string]any{"gateway": name, "supported": r.Names()})
	}
	return g, nil
}

// Names lists the registered provider names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.gateways))
	for name := range r.gateways {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
