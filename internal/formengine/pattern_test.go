package formengine_test

import (
	"context"
	"testing"
	"time"

	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/valueobjects"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/formengine"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/ksg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func provenanceForTest() valueobjects.Provenance {
	return valueobjects.NewProvenance(valueobjects.SourceTool, "", 1.0, time.Now())
}

func TestPatternStore_LookupByExactFingerprint(t *testing.T) {
	store := ksg.NewStore()
	patterns := formengine.NewStore(store, 2.0, nil)

	page := formengine.Page{
		Domain: "example.com",
		Path:   "/login",
		Fields: []formengine.Field{{Label: "Email", InputType: "email"}},
	}

	props := valueobjects.EmptyProperties().
		With("fingerprint", formengine.Fingerprint(page)).
		With("domain", page.Domain).
		With("formType", "login").
		With("selectors", map[string]string{"email": "#email"})

	_, err := store.CreateNode(formengine.KindFormPattern, []string{page.Domain}, props, provenanceForTest())
	require.NoError(t, err)

	found, err := patterns.Lookup(page)
	require.NoError(t, err)
	assert.Equal(t, "#email", found.Selectors["email"])
}

func TestPatternStore_LookupFallsBackToDetector(t *testing.T) {
	store := ksg.NewStore()
	detector := stubDetector{selectors: map[string]string{"email": "input[type=email]"}}
	patterns := formengine.NewStore(store, 2.0, detector)

	page := formengine.Page{Domain: "new-site.com", Fields: []formengine.Field{{Label: "Email", InputType: "email"}}}

	found, err := patterns.Lookup(page)
	require.NoError(t, err)
	assert.Equal(t, "input[type=email]", found.Selectors["email"])

	again, err := patterns.Lookup(page)
	require.NoError(t, err)
	assert.Equal(t, found.Fingerprint, again.Fingerprint)
}

func TestPatternStore_LookupWithoutDetectorReturnsNotFound(t *testing.T) {
	store := ksg.NewStore()
	patterns := formengine.NewStore(store, 2.0, nil)

	_, err := patterns.Lookup(formengine.Page{Domain: "unseen.com"})
	assert.Error(t, err)
}

func TestPatternStore_PersistSelectorWinnerUpdatesSelectors(t *testing.T) {
	store := ksg.NewStore()
	patterns := formengine.NewStore(store, 2.0, nil)

	page := formengine.Page{Domain: "example.com", Fields: []formengine.Field{{Label: "Email", InputType: "email"}}}
	props := valueobjects.EmptyProperties().
		With("fingerprint", formengine.Fingerprint(page)).
		With("domain", page.Domain).
		With("selectors", map[string]string{"email": "#email"})

	concept, err := store.CreateNode(formengine.KindFormPattern, []string{page.Domain}, props, provenanceForTest())
	require.NoError(t, err)

	err = patterns.PersistSelectorWinner(context.Background(), concept.ID(), "email", "input[type=email]")
	require.NoError(t, err)

	found, err := patterns.Lookup(page)
	require.NoError(t, err)
	assert.Equal(t, "input[type=email]", found.Selectors["email"])
}

type stubDetector struct {
	selectors map[string]string
}

func (d stubDetector) Detect(formengine.Page) (map[string]string, error) {
	return d.selectors, nil
}
