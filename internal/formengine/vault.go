package formengine

import (
	"context"
	"time"

	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/valueobjects"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/ksg"
)

// Kinds for the value sets the autofill algorithm selects among (§4.4
// step 2: credential/identity/payment/formdata).
const (
	KindCredential    = "Credential"
	KindIdentity      = "Identity"
	KindPaymentMethod = "PaymentMethod"
	KindFormData      = "FormData"
)

// ValueSet is one credential/identity/payment/formdata record.
type ValueSet struct {
	ID           valueobjects.NodeID
	Kind         string
	Domain       string
	Values       map[string]string // field name -> value
	LastUsedAt   time.Time
}

// Vault selects and records value sets the autofill algorithm fills forms
// with.
type Vault struct {
	ksg *ksg.Store
}

// NewVault builds a vault over ksgStore.
func NewVault(ksgStore *ksg.Store) *Vault {
	return &Vault{ksg: ksgStore}
}

// FindByDomain returns every value set of kind stored for domain.
func (v *Vault) FindByDomain(kind, domain string) ([]ValueSet, error) {
	results, err := v.ksg.Search(ksg.SearchFilters{Kind: kind}, nil, 0, 0)
	if err != nil {
		return nil, err
	}

	var out []ValueSet
	for _, r := range results {
		d, _ := r.Concept.Properties().GetString("domain")
		if d == domain {
			out = append(out, valueSetFromProperties(r.Concept.ID(), kind, r.Concept))
		}
	}
	return out, nil
}

// conceptProperties is the narrow surface vault reads from a concept,
// named so valueSetFromProperties doesn't need the full entities import
// cycle for a two-call read.
type conceptProperties interface {
	ID() valueobjects.NodeID
	Properties() valueobjects.Properties
}

func valueSetFromProperties(id valueobjects.NodeID, kind string, c conceptProperties) ValueSet {
	domain, _ := c.Properties().GetString("domain")
	vs := ValueSet{ID: id, Kind: kind, Domain: domain, Values: map[string]string{}}

	if raw, ok := c.Properties().Get("values"); ok {
		if m, ok := raw.(map[string]string); ok {
			vs.Values = m
		}
	}
	if raw, ok := c.Properties().Get("lastUsedAt"); ok {
		if t, ok := raw.(time.Time); ok {
			vs.LastUsedAt = t
		}
	}

	return vs
}

// MostRecentlyUsed picks the value set selected by the §4.4 step-2 policy:
// prefer same domain, then most recent successful use.
func (v *Vault) MostRecentlyUsed(kind, domain string) (ValueSet, bool, error) {
	sameDomain, err := v.FindByDomain(kind, domain)
	if err != nil {
		return ValueSet{}, false, err
	}

	candidates := sameDomain
	if len(candidates) == 0 {
		all, err := v.ksg.Search(ksg.SearchFilters{Kind: kind}, nil, 0, 0)
		if err != nil {
			return ValueSet{}, false, err
		}
		for _, r := range all {
			candidates = append(candidates, valueSetFromProperties(r.Concept.ID(), kind, r.Concept))
		}
	}

	if len(candidates) == 0 {
		return ValueSet{}, false, nil
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.LastUsedAt.After(best.LastUsedAt) {
			best = c
		}
	}
	return best, true, nil
}

// MarkUsed stamps lastUsedAt on a value set after a successful autofill.
func (v *Vault) MarkUsed(id valueobjects.NodeID) error {
	patch := valueobjects.EmptyProperties().With("lastUsedAt", time.Now())
	return v.ksg.UpdateProperties(context.Background(), id, patch)
}
