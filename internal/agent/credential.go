package agent

import (
	"context"
	"regexp"

	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/entities"
	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/valueobjects"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/ksg"
)

// KindCredential and KindDomain are the Concept kinds credential capture
// (§8 S1/S2) stores as.
const (
	KindCredential = "Credential"
	KindDomain     = "Domain"
)

var (
	domainPattern   = regexp.MustCompile(`(?i)\b([a-z0-9-]+(?:\.[a-z0-9-]+)*\.[a-z]{2,})\b`)
	emailPattern    = regexp.MustCompile(`(?i)\bemail\s+(\S+@\S+)`)
	passwordPattern = regexp.MustCompile(`(?i)\bpassword\s+(\S+)`)
)

// handleCredentials looks for a domain reference in text and either creates
// a Credential concept (when email+password are also present), refreshes an
// existing one's values, or simply bumps its recallCount when the domain is
// reused without credential values that differ from the stored ones (§8 S1/S2).
func (l *Loop) handleCredentials(ctx context.Context, text string, provenance valueobjects.Provenance) {
	domainMatch := domainPattern.FindStringSubmatch(text)
	if domainMatch == nil {
		return
	}
	domain := domainMatch[1]

	var email, password string
	if m := emailPattern.FindStringSubmatch(text); m != nil {
		email = m[1]
	}
	if m := passwordPattern.FindStringSubmatch(text); m != nil {
		password = m[1]
	}

	existing, found := l.findCredentialByDomain(domain)
	changed := false
	if found {
		storedEmail, _ := existing.Properties().GetString("email")
		storedPassword, _ := existing.Properties().GetString("password")
		changed = (email != "" && email != storedEmail) || (password != "" && password != storedPassword)
	}

	switch {
	case found && !changed:
		count, _ := existing.Properties().GetFloat("recallCount")
		_ = l.ksgStore.UpdateProperties(ctx, existing.ID(), valueobjects.EmptyProperties().With("recallCount", int(count)+1))

	case found:
		patch := valueobjects.EmptyProperties()
		if email != "" {
			patch = patch.With("email", email)
		}
		if password != "" {
			patch = patch.With("password", password)
		}
		_ = l.ksgStore.UpdateProperties(ctx, existing.ID(), patch)

	case email != "" && password != "":
		l.createCredential(ctx, domain, email, password, provenance)
	}
}

func (l *Loop) findCredentialByDomain(domain string) (*entities.Concept, bool) {
	results, err := l.ksgStore.Search(ksg.SearchFilters{Kind: KindCredential, Labels: []string{domain}}, nil, 0, 0)
	if err != nil || len(results) == 0 {
		return nil, false
	}
	return results[0].Concept, true
}

func (l *Loop) createCredential(ctx context.Context, domain, email, password string, provenance valueobjects.Provenance) {
	props := valueobjects.EmptyProperties().
		With("domain", domain).
		With("email", email).
		With("password", password).
		With("recallCount", 0)

	credential, err := l.ksgStore.CreateNode(KindCredential, []string{domain}, props, provenance)
	if err != nil {
		return
	}

	domainConcept, err := l.findOrCreateDomainConcept(ctx, domain, provenance)
	if err != nil {
		return
	}

	_, _ = l.ksgStore.CreateRelationship(ctx, credential.ID(), domainConcept.ID(), entities.RelationAssociatedWith, 1.0)
}

func (l *Loop) findOrCreateDomainConcept(ctx context.Context, domain string, provenance valueobjects.Provenance) (*entities.Concept, error) {
	results, err := l.ksgStore.Search(ksg.SearchFilters{Kind: KindDomain, Labels: []string{domain}}, nil, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(results) > 0 {
		return results[0].Concept, nil
	}

	return l.ksgStore.CreateNode(KindDomain, []string{domain}, valueobjects.EmptyProperties().With("domain", domain), provenance)
}
