package formengine_test

import (
	"context"
	"testing"

	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/valueobjects"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/formengine"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/ksg"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/tools"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedLoginPattern(t *testing.T, store *ksg.Store, page formengine.Page, selectors map[string]string) {
	t.Helper()
	props := valueobjects.EmptyProperties().
		With("fingerprint", formengine.Fingerprint(page)).
		With("domain", page.Domain).
		With("formType", "login").
		With("selectors", selectors)
	_, err := store.CreateNode(formengine.KindFormPattern, []string{page.Domain}, props, provenanceForTest())
	require.NoError(t, err)
}

func seedCredential(t *testing.T, store *ksg.Store, domain string, values map[string]string) {
	t.Helper()
	props := valueobjects.EmptyProperties().With("domain", domain).With("values", values)
	_, err := store.CreateNode(formengine.KindCredential, nil, props, provenanceForTest())
	require.NoError(t, err)
}

func TestAutofiller_Fill_StoredSelectorSucceeds(t *testing.T) {
	store := ksg.NewStore()
	page := formengine.Page{Domain: "example.com", Fields: []formengine.Field{{Label: "Email", InputType: "email"}}}
	seedLoginPattern(t, store, page, map[string]string{"email": "#email"})
	seedCredential(t, store, "example.com", map[string]string{"email": "a@example.com"})

	registry := tools.NewRegistry()
	registry.Register(tools.Descriptor{Name: tools.WebFill, Invoke: func(ctx context.Context, params tools.Params) (tools.Params, error) {
		assert.Equal(t, "#email", params["selector"])
		return tools.Params{}, nil
	}})

	autofiller := formengine.NewAutofiller(formengine.NewStore(store, 2.0, nil), formengine.NewVault(store), registry)

	results, err := autofiller.Fill(context.Background(), "example.com", formengine.KindCredential, page, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "#email", results[0].Selector)
	assert.True(t, results[0].Filled)
}

func TestAutofiller_Fill_FallsBackAndPersistsWinner(t *testing.T) {
	store := ksg.NewStore()
	page := formengine.Page{Domain: "example.com", Fields: []formengine.Field{{Label: "Email", InputType: "email"}}}
	seedLoginPattern(t, store, page, map[string]string{"email": "#stale-selector"})
	seedCredential(t, store, "example.com", map[string]string{"email": "a@example.com"})

	registry := tools.NewRegistry()
	registry.Register(tools.Descriptor{Name: tools.WebFill, Invoke: func(ctx context.Context, params tools.Params) (tools.Params, error) {
		if params["selector"] == "#stale-selector" {
			return nil, assert.AnError
		}
		return tools.Params{}, nil
	}})

	patterns := formengine.NewStore(store, 2.0, nil)
	autofiller := formengine.NewAutofiller(patterns, formengine.NewVault(store), registry)

	results, err := autofiller.Fill(context.Background(), "example.com", formengine.KindCredential, page, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "input[type=email]", results[0].Selector)

	reLookup, err := patterns.Lookup(page)
	require.NoError(t, err)
	assert.Equal(t, "input[type=email]", reLookup.Selectors["email"])
}

func TestAutofiller_Fill_AllSelectorsFailed(t *testing.T) {
	store := ksg.NewStore()
	page := formengine.Page{Domain: "example.com", Fields: []formengine.Field{{Label: "Email", InputType: "email"}}}
	seedLoginPattern(t, store, page, map[string]string{"email": "#stale-selector"})
	seedCredential(t, store, "example.com", map[string]string{"email": "a@example.com"})

	registry := tools.NewRegistry()
	registry.Register(tools.Descriptor{Name: tools.WebFill, Invoke: func(ctx context.Context, params tools.Params) (tools.Params, error) {
		return nil, assert.AnError
	}})

	autofiller := formengine.NewAutofiller(formengine.NewStore(store, 2.0, nil), formengine.NewVault(store), registry)

	_, err := autofiller.Fill(context.Background(), "example.com", formengine.KindCredential, page, nil)
	require.Error(t, err)
	var failedErr *formengine.AllSelectorsFailedError
	require.ErrorAs(t, err, &failedErr)
	assert.Contains(t, failedErr.Fields, "email")
}

func TestAutofiller_Fill_AsksForMissingValue(t *testing.T) {
	store := ksg.NewStore()
	page := formengine.Page{Domain: "example.com", Fields: []formengine.Field{{Label: "Email", InputType: "email"}}}
	seedLoginPattern(t, store, page, map[string]string{"email": "#email"})
	seedCredential(t, store, "example.com", map[string]string{})

	registry := tools.NewRegistry()
	registry.Register(tools.Descriptor{Name: tools.WebFill, Invoke: func(ctx context.Context, params tools.Params) (tools.Params, error) {
		return tools.Params{}, nil
	}})

	autofiller := formengine.NewAutofiller(formengine.NewStore(store, 2.0, nil), formengine.NewVault(store), registry)

	asked := false
	ask := func(ctx context.Context, field string) (string, error) {
		asked = true
		return "a@example.com", nil
	}

	results, err := autofiller.Fill(context.Background(), "example.com", formengine.KindCredential, page, ask)
	require.NoError(t, err)
	assert.True(t, asked)
	require.Len(t, results, 1)
}
