package modelCatalog

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"ollama-webchat/internal/pkg/ollama"
	"ollama-webchat/internal/pkg/settings"
)

// ModelTransport is the part of the Ollama client the catalog depends on.
type ModelTransport interface {
	ListModels(ctx context.Context) ([]ollama.ModelSummary, error)
	ShowModel(ctx context.Context, name string) (*ollama.ModelDetail, error)
}

// Catalog owns the set of available models and the current selection. The set
// is replaced wholesale on every refresh; a failed refresh empties it and
// clears the selection so stale data is never displayed.
type Catalog struct {
	mutex    sync.RWMutex
	models   []ollama.ModelSummary
	selected string
	detail   *ollama.ModelDetail

	transport ModelTransport
	store     *settings.Store
}

// New creates a catalog, restoring the persisted selection if one exists.
func New(transport ModelTransport, store *settings.Store) *Catalog {
	selected, err := store.Get(settings.KeySelectedModel, "")
	if err != nil {
		log.Error().Err(err).Msg("settings.Store.Get() failed, starting with no selection")
		selected = ""
	}

	return &Catalog{
		transport: transport,
		store:     store,
		selected:  selected,
	}
}

// Refresh replaces the model set from the server. On failure the set empties,
// the selection clears and the error is returned for the caller to surface.
func (catalog *Catalog) Refresh(ctx context.Context) ([]ollama.ModelSummary, error) {
	models, err := catalog.transport.ListModels(ctx)
	if err != nil {
		catalog.mutex.Lock()
		catalog.models = nil
		catalog.selected = ""
		catalog.detail = nil
		catalog.mutex.Unlock()

		catalog.persistSelection("")
		return nil, err
	}

	catalog.mutex.Lock()
	catalog.models = models
	// Drop a selection that no longer exists on the server.
	if catalog.selected != "" && !containsModel(models, catalog.selected) {
		catalog.selected = ""
		catalog.detail = nil
		catalog.mutex.Unlock()
		catalog.persistSelection("")
	} else {
		catalog.mutex.Unlock()
	}

	return models, nil
}

// Models returns the current snapshot of the model set.
func (catalog *Catalog) Models() []ollama.ModelSummary {
	catalog.mutex.RLock()
	defer catalog.mutex.RUnlock()

	models := make([]ollama.ModelSummary, len(catalog.models))
	copy(models, catalog.models)
	return models
}

// Select makes name the current model and persists it. The cached detail
// snapshot of the previous selection is discarded.
func (catalog *Catalog) Select(name string) {
	catalog.mutex.Lock()
	catalog.selected = name
	catalog.detail = nil
	catalog.mutex.Unlock()

	catalog.persistSelection(name)
}

// Selected returns the current model name, empty when nothing is selected.
func (catalog *Catalog) Selected() string {
	catalog.mutex.RLock()
	defer catalog.mutex.RUnlock()

	return catalog.selected
}

// Detail returns the point-in-time detail snapshot for the selected model,
// fetching it on first use after each selection change.
func (catalog *Catalog) Detail(ctx context.Context) (*ollama.ModelDetail, error) {
	catalog.mutex.RLock()
	selected := catalog.selected
	cached := catalog.detail
	catalog.mutex.RUnlock()

	if selected == "" {
		return nil, ollama.ErrModelNotFound
	}
	if cached != nil {
		return cached, nil
	}

	detail, err := catalog.transport.ShowModel(ctx, selected)
	if err != nil {
		return nil, err
	}

	catalog.mutex.Lock()
	// Selection may have moved while the request was in flight; only cache
	// the snapshot if it still matches.
	if catalog.selected == selected {
		catalog.detail = detail
	}
	catalog.mutex.Unlock()

	return detail, nil
}

func (catalog *Catalog) persistSelection(name string) {
	var err error
	if name == "" {
		err = catalog.store.Delete(settings.KeySelectedModel)
	} else {
		err = catalog.store.Set(settings.KeySelectedModel, name)
	}
	if err != nil {
		log.Error().Err(err).Str("model", name).Msg("persisting model selection failed")
	}
}

func containsModel(models []ollama.ModelSummary, name string) bool {
	for _, model := range models {
		if model.Name == name {
			return true
		}
	}
	return false
}
