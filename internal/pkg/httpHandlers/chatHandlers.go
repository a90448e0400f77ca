package httpHandlers

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"ollama-webchat/internal/pkg/chatSession"
	"ollama-webchat/internal/pkg/cookies"
	"ollama-webchat/internal/pkg/modelCatalog"
	"ollama-webchat/internal/pkg/ollama"
	"ollama-webchat/internal/pkg/pullProgress"
	"ollama-webchat/internal/pkg/sessions"
	"ollama-webchat/internal/pkg/settings"
	"ollama-webchat/internal/pkg/web"
	"ollama-webchat/internal/pkg/websocketServer"
)

type ChatHandlers struct {
	templates          *template.Template
	notificationServer websocketServer.WebsocketServer
	sessionManager     *sessions.SessionManager
	catalog            *modelCatalog.Catalog
	transport          *ollama.Holder
	pullRegistry       *pullProgress.Registry
	settingsStore      *settings.Store
}

func New(templates *template.Template, sessionManager *sessions.SessionManager,
	notificationServer websocketServer.WebsocketServer, catalog *modelCatalog.Catalog,
	transport *ollama.Holder, pullRegistry *pullProgress.Registry,
	settingsStore *settings.Store) *ChatHandlers {

	return &ChatHandlers{
		templates:          templates,
		sessionManager:     sessionManager,
		notificationServer: notificationServer,
		catalog:            catalog,
		transport:          transport,
		pullRegistry:       pullRegistry,
		settingsStore:      settingsStore,
	}
}

type uiMain struct {
	Sessions      []UiSession
	SelectedModel string
	BaseUrl       string
}

func (instance *ChatHandlers) Main(request *http.Request, simulatedDelay int) *web.Response {
	var cookie *http.Cookie
	id := cookies.GetIdFromCookie(request)
	if id == uuid.Nil || instance.sessionManager.GetSession(id) == nil {
		var err error
		id, err = uuid.NewUUID()
		if err != nil {
			return web.GetEmptyResponse(http.StatusInternalServerError, nil, nil)
		}

		cookie = cookies.SetIdToCookie(id)
		if cookie == nil {
			return web.GetEmptyResponse(http.StatusInternalServerError, nil, nil)
		}

		err = instance.sessionManager.AddSession(id, instance.chatBlockResponseHandler(id))
		if err != nil {
			log.Error().Err(err).Msg("sessionManager.AddSession() failed")
			return web.GetEmptyResponse(http.StatusInternalServerError, nil, nil)
		}
	}

	session := instance.sessionManager.GetSession(id)
	if session == nil {
		log.Error().Msg("sessionManager.GetSession() failed")
		return web.GetEmptyResponse(http.StatusInternalServerError, nil, nil)
	}

	data := uiMain{
		Sessions:      ToUiSessions(session.ChatBlocks()),
		SelectedModel: instance.catalog.Selected(),
		BaseUrl:       instance.transport.BaseUrl(),
	}

	headers := web.Headers{"HX-Trigger-After-Swap": "{\"parseAllRawMessages\":\"\"}"}
	return web.RenderResponse(http.StatusOK, instance.templates, "main.gohtml", data, headers, cookie)
}

func (instance *ChatHandlers) Ask(request *http.Request, simulatedDelay int) *web.Response {
	id := cookies.GetIdFromCookie(request)
	if id == uuid.Nil {
		return web.GetEmptyResponse(http.StatusBadRequest, nil, nil)
	}

	session := instance.sessionManager.GetSession(id)
	if session == nil {
		log.Error().Msg("sessionManager.GetSession() failed")
		return web.GetEmptyResponse(http.StatusInternalServerError, nil, nil)
	}

	if err := request.ParseForm(); err != nil {
		log.Error().Err(err).Msg("http.Request.ParseForm() failed")
		return web.GetEmptyResponse(http.StatusBadRequest, nil, nil)
	}

	userInput := request.Form.Get("user-input")
	images := request.Form["images"]

	if err := session.EnqueueMessage(userInput, images); err != nil {
		log.Error().Err(err).Msg("enqueue question failed")
		return web.GetEmptyResponse(http.StatusInternalServerError, nil, nil)
	}

	headers := web.Headers{"HX-Trigger-After-Swap": "{\"clearUserInput\":\"\"}"}
	return web.GetEmptyResponse(http.StatusOK, headers, nil)
}

func (instance *ChatHandlers) chatBlockResponseHandler(id uuid.UUID) chatSession.ChatBlockResponseFunc {
	return func(response chatSession.ChatBlockResponse) {
		instance.publishFragment(id, "chat-response.gohtml", ToUiSessionResponse(response))
	}
}

// publishFragment renders a template and pushes the result to the session's
// open websocket connections.
func (instance *ChatHandlers) publishFragment(id uuid.UUID, templateName string, data any) {
	var buffer bytes.Buffer
	if err := instance.templates.ExecuteTemplate(&buffer, templateName, data); err != nil {
		log.Error().Err(err).Str("template_name", templateName).Msg("templates.ExecuteTemplate() failed")
		return
	}
	instance.notificationServer.Publish(id, buffer.Bytes())
}
