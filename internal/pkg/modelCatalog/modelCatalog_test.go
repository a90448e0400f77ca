package modelCatalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ollama-webchat/internal/pkg/ollama"
	"ollama-webchat/internal/pkg/settings"
)

type fakeTransport struct {
	models    []ollama.ModelSummary
	listErr   error
	detail    *ollama.ModelDetail
	showErr   error
	showCalls int
}

func (transport *fakeTransport) ListModels(ctx context.Context) ([]ollama.ModelSummary, error) {
	if transport.listErr != nil {
		return nil, transport.listErr
	}
	return transport.models, nil
}

func (transport *fakeTransport) ShowModel(ctx context.Context, name string) (*ollama.ModelDetail, error) {
	transport.showCalls++
	if transport.showErr != nil {
		return nil, transport.showErr
	}
	return transport.detail, nil
}

func openTestStore(t *testing.T) *settings.Store {
	t.Helper()

	store, err := settings.Open(filepath.Join(t.TempDir(), "settings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func summaries(names ...string) []ollama.ModelSummary {
	models := make([]ollama.ModelSummary, len(names))
	for index, name := range names {
		models[index] = ollama.ModelSummary{Name: name}
	}
	return models
}

func TestRefreshReplacesModelSetWholesale(t *testing.T) {
	transport := &fakeTransport{models: summaries("llama3:latest", "qwen3:8b")}
	catalog := New(transport, openTestStore(t))

	_, err := catalog.Refresh(context.Background())
	require.NoError(t, err)
	assert.Len(t, catalog.Models(), 2)

	transport.models = summaries("mistral:7b")
	_, err = catalog.Refresh(context.Background())
	require.NoError(t, err)

	models := catalog.Models()
	require.Len(t, models, 1)
	assert.Equal(t, "mistral:7b", models[0].Name)
}

func TestRefreshFailureClearsModelsAndSelection(t *testing.T) {
	transport := &fakeTransport{models: summaries("llama3:latest")}
	store := openTestStore(t)
	catalog := New(transport, store)

	_, err := catalog.Refresh(context.Background())
	require.NoError(t, err)
	catalog.Select("llama3:latest")

	transport.listErr = ollama.ErrUnreachable
	_, err = catalog.Refresh(context.Background())
	require.Error(t, err)

	assert.Empty(t, catalog.Models())
	assert.Empty(t, catalog.Selected())

	persisted, err := store.Get(settings.KeySelectedModel, "none")
	require.NoError(t, err)
	assert.Equal(t, "none", persisted, "cleared selection must not survive a restart")
}

func TestRefreshDropsSelectionMissingFromServer(t *testing.T) {
	transport := &fakeTransport{models: summaries("llama3:latest")}
	catalog := New(transport, openTestStore(t))

	_, err := catalog.Refresh(context.Background())
	require.NoError(t, err)
	catalog.Select("llama3:latest")

	transport.models = summaries("qwen3:8b")
	_, err = catalog.Refresh(context.Background())
	require.NoError(t, err)

	assert.Empty(t, catalog.Selected())
}

func TestSelectionPersistsAcrossCatalogs(t *testing.T) {
	store := openTestStore(t)
	transport := &fakeTransport{}

	catalog := New(transport, store)
	catalog.Select("qwen3:8b")

	reopened := New(transport, store)
	assert.Equal(t, "qwen3:8b", reopened.Selected())
}

func TestDetailFetchedOnDemandAndCached(t *testing.T) {
	transport := &fakeTransport{detail: &ollama.ModelDetail{License: "MIT"}}
	catalog := New(transport, openTestStore(t))
	catalog.Select("llama3:latest")

	detail, err := catalog.Detail(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "MIT", detail.License)

	_, err = catalog.Detail(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, transport.showCalls, "detail snapshot must be cached per selection")
}

func TestDetailRefetchedAfterSelectionChange(t *testing.T) {
	transport := &fakeTransport{detail: &ollama.ModelDetail{License: "MIT"}}
	catalog := New(transport, openTestStore(t))

	catalog.Select("llama3:latest")
	_, err := catalog.Detail(context.Background())
	require.NoError(t, err)

	catalog.Select("qwen3:8b")
	_, err = catalog.Detail(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, transport.showCalls)
}

func TestDetailWithoutSelection(t *testing.T) {
	catalog := New(&fakeTransport{}, openTestStore(t))

	_, err := catalog.Detail(context.Background())
	assert.True(t, ollama.IsNotFound(err))
}
