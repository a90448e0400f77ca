package httpHandlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"ollama-webchat/internal/pkg/cookies"
	"ollama-webchat/internal/pkg/ollama"
	"ollama-webchat/internal/pkg/pullProgress"
	"ollama-webchat/internal/pkg/settings"
	"ollama-webchat/internal/pkg/web"
)

type uiConnectionError struct {
	BaseUrl string
	Message string
}

// Models refreshes the model set from the server and renders it. A
// connectivity failure renders the full-panel guidance view instead; the
// retry button there simply re-invokes this handler.
func (instance *ChatHandlers) Models(request *http.Request, simulatedDelay int) *web.Response {
	models, err := instance.catalog.Refresh(request.Context())
	if err != nil {
		log.Error().Err(err).Msg("modelCatalog.Catalog.Refresh() failed")

		if ollama.IsConnectionError(err) {
			data := uiConnectionError{
				BaseUrl: instance.transport.BaseUrl(),
				Message: "The inference server can't be reached. Make sure it is running, then retry.",
			}
			return web.RenderResponse(http.StatusOK, instance.templates, "connection-error.gohtml", data, nil, nil)
		}

		data := uiConnectionError{
			BaseUrl: instance.transport.BaseUrl(),
			Message: "Listing models failed: " + err.Error(),
		}
		return web.RenderResponse(http.StatusOK, instance.templates, "connection-error.gohtml", data, nil, nil)
	}

	data := UiModelList{
		Models:        ToUiModels(models, instance.catalog.Selected()),
		SelectedModel: instance.catalog.Selected(),
	}
	return web.RenderResponse(http.StatusOK, instance.templates, "model-list.gohtml", data, nil, nil)
}

// SelectModel makes the posted model the current one for every open session.
func (instance *ChatHandlers) SelectModel(request *http.Request, simulatedDelay int) *web.Response {
	if err := request.ParseForm(); err != nil {
		log.Error().Err(err).Msg("http.Request.ParseForm() failed")
		return web.GetEmptyResponse(http.StatusBadRequest, nil, nil)
	}

	modelName := request.Form.Get("model-name")
	if modelName == "" {
		return web.GetEmptyResponse(http.StatusBadRequest, nil, nil)
	}

	instance.catalog.Select(modelName)
	instance.sessionManager.SelectModel(modelName)

	data := UiModelList{
		Models:        ToUiModels(instance.catalog.Models(), modelName),
		SelectedModel: modelName,
	}
	headers := web.Headers{"HX-Trigger-After-Swap": "{\"loadModelDetail\":\"\"}"}
	return web.RenderResponse(http.StatusOK, instance.templates, "model-list.gohtml", data, headers, nil)
}

// ModelDetail renders the detail snapshot of the selected model.
func (instance *ChatHandlers) ModelDetail(request *http.Request, simulatedDelay int) *web.Response {
	detail, err := instance.catalog.Detail(request.Context())
	if err != nil {
		if ollama.IsNotFound(err) {
			return web.GetEmptyResponse(http.StatusNotFound, nil, nil)
		}
		log.Error().Err(err).Msg("modelCatalog.Catalog.Detail() failed")
		return web.GetEmptyResponse(http.StatusInternalServerError, nil, nil)
	}

	data := ToUiModelDetail(instance.catalog.Selected(), detail)
	return web.RenderResponse(http.StatusOK, instance.templates, "model-detail.gohtml", data, nil, nil)
}

// Pull starts downloading the posted model onto the inference server and
// streams progress to the session over the websocket. A pull already running
// for the same model is rejected instead of tracked twice.
func (instance *ChatHandlers) Pull(request *http.Request, simulatedDelay int) *web.Response {
	id := cookies.GetIdFromCookie(request)
	if id == uuid.Nil {
		return web.GetEmptyResponse(http.StatusBadRequest, nil, nil)
	}

	if err := request.ParseForm(); err != nil {
		log.Error().Err(err).Msg("http.Request.ParseForm() failed")
		return web.GetEmptyResponse(http.StatusBadRequest, nil, nil)
	}

	modelName := request.Form.Get("model-name")
	if modelName == "" {
		return web.GetEmptyResponse(http.StatusBadRequest, nil, nil)
	}

	tracker, err := instance.pullRegistry.Begin(modelName, instance.pullStatusHandler(id))
	if err != nil {
		if errors.Is(err, pullProgress.ErrPullInFlight) {
			data := UiPullStatus{
				Model:      modelName,
				StatusText: "A pull for this model is already in flight.",
				Terminal:   true,
				Failed:     true,
			}
			return web.RenderResponse(http.StatusConflict, instance.templates, "pull-progress.gohtml", data, nil, nil)
		}
		log.Error().Err(err).Str("model", modelName).Msg("pullProgress.Registry.Begin() failed")
		return web.GetEmptyResponse(http.StatusInternalServerError, nil, nil)
	}

	go func() {
		err := instance.transport.PullModel(context.Background(), modelName, tracker.Observe)
		if err != nil {
			log.Error().Err(err).Str("model", modelName).Msg("ollama.Client.PullModel() failed")
		}
		tracker.Complete(err)
	}()

	data := UiPullStatus{Model: modelName, StatusText: "starting pull"}
	return web.RenderResponse(http.StatusOK, instance.templates, "pull-progress.gohtml", data, nil, nil)
}

func (instance *ChatHandlers) pullStatusHandler(id uuid.UUID) pullProgress.StatusFunc {
	return func(status pullProgress.Status) {
		instance.publishFragment(id, "pull-progress.gohtml", ToUiPullStatus(status))
	}
}

// ServerUrl reconfigures the inference server base URL, persists it and swaps
// the transport. The UI refreshes the model list right after.
func (instance *ChatHandlers) ServerUrl(request *http.Request, simulatedDelay int) *web.Response {
	if err := request.ParseForm(); err != nil {
		log.Error().Err(err).Msg("http.Request.ParseForm() failed")
		return web.GetEmptyResponse(http.StatusBadRequest, nil, nil)
	}

	baseUrl := request.Form.Get("base-url")
	if baseUrl == "" {
		return web.GetEmptyResponse(http.StatusBadRequest, nil, nil)
	}

	if err := instance.settingsStore.Set(settings.KeyBaseUrl, baseUrl); err != nil {
		log.Error().Err(err).Msg("settings.Store.Set() failed")
		return web.GetEmptyResponse(http.StatusInternalServerError, nil, nil)
	}

	instance.transport.Swap(ollama.NewClient(ollama.ClientConfig{BaseURL: baseUrl}))

	headers := web.Headers{"HX-Trigger-After-Swap": "{\"reloadModels\":\"\"}"}
	return web.GetEmptyResponse(http.StatusOK, headers, nil)
}
