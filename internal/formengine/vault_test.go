package formengine_test

import (
	"testing"
	"time"

	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/valueobjects"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/formengine"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/ksg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVault_FindByDomain(t *testing.T) {
	store := ksg.NewStore()
	vault := formengine.NewVault(store)

	props := valueobjects.EmptyProperties().
		With("domain", "example.com").
		With("values", map[string]string{"email": "a@example.com", "password": "hunter2"})
	_, err := store.CreateNode(formengine.KindCredential, nil, props, provenanceForTest())
	require.NoError(t, err)

	found, err := vault.FindByDomain(formengine.KindCredential, "example.com")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "a@example.com", found[0].Values["email"])
}

func TestVault_MostRecentlyUsed_PrefersSameDomain(t *testing.T) {
	store := ksg.NewStore()
	vault := formengine.NewVault(store)

	otherProps := valueobjects.EmptyProperties().
		With("domain", "other.com").
		With("values", map[string]string{"email": "b@other.com"}).
		With("lastUsedAt", time.Now())
	_, err := store.CreateNode(formengine.KindCredential, nil, otherProps, provenanceForTest())
	require.NoError(t, err)

	sameDomainProps := valueobjects.EmptyProperties().
		With("domain", "example.com").
		With("values", map[string]string{"email": "a@example.com"})
	_, err = store.CreateNode(formengine.KindCredential, nil, sameDomainProps, provenanceForTest())
	require.NoError(t, err)

	best, found, err := vault.MostRecentlyUsed(formengine.KindCredential, "example.com")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "a@example.com", best.Values["email"])
}

func TestVault_MostRecentlyUsed_FallsBackAcrossDomains(t *testing.T) {
	store := ksg.NewStore()
	vault := formengine.NewVault(store)

	props := valueobjects.EmptyProperties().
		With("domain", "other.com").
		With("values", map[string]string{"email": "b@other.com"})
	_, err := store.CreateNode(formengine.KindCredential, nil, props, provenanceForTest())
	require.NoError(t, err)

	best, found, err := vault.MostRecentlyUsed(formengine.KindCredential, "example.com")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "b@other.com", best.Values["email"])
}

func TestVault_MostRecentlyUsed_NoneFound(t *testing.T) {
	store := ksg.NewStore()
	vault := formengine.NewVault(store)

	_, found, err := vault.MostRecentlyUsed(formengine.KindCredential, "example.com")
	require.NoError(t, err)
	assert.False(t, found)
}
