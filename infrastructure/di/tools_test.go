package di

import (
	"testing"

	"github.com/lehelkovach/osl-agent-prototype-sub000/infrastructure/acl"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/ksg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRecordWebObservation_StoresObservationConceptWithTitleAndURL(t *testing.T) {
	store := ksg.NewStore()
	html := `<html><head><title>Example Domain</title></head><body>hello</body></html>`

	recordWebObservation(store, zap.NewNop(), "https://example.com", html, 200)

	results, err := store.Search(ksg.SearchFilters{Kind: acl.KindObservation}, nil, 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)

	title, ok := results[0].Concept.Properties().GetString("title")
	assert.True(t, ok)
	assert.Equal(t, "Example Domain", title)

	url, ok := results[0].Concept.Properties().GetString("url")
	assert.True(t, ok)
	assert.Equal(t, "https://example.com", url)
}

func TestRecordWebObservation_FallsBackToURLWhenNoTitleTag(t *testing.T) {
	store := ksg.NewStore()

	recordWebObservation(store, zap.NewNop(), "https://example.com/page", "<html><body>no title here</body></html>", 200)

	results, err := store.Search(ksg.SearchFilters{Kind: acl.KindObservation}, nil, 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)

	title, ok := results[0].Concept.Properties().GetString("title")
	assert.True(t, ok)
	assert.Equal(t, "https://example.com/page", title)
}

func TestRecordWebObservation_SkipsStorageWhenValidationFails(t *testing.T) {
	store := ksg.NewStore()

	longTitle := make([]byte, 600)
	for i := range longTitle {
		longTitle[i] = 'a'
	}
	html := "<title>" + string(longTitle) + "</title>"

	recordWebObservation(store, zap.NewNop(), "https://example.com", html, 200)

	results, err := store.Search(ksg.SearchFilters{Kind: acl.KindObservation}, nil, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}
