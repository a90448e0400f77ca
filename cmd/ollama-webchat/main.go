package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"ollama-webchat/internal/pkg/chatSession"
	"ollama-webchat/internal/pkg/config"
	"ollama-webchat/internal/pkg/httpHandlers"
	"ollama-webchat/internal/pkg/modelCatalog"
	"ollama-webchat/internal/pkg/ollama"
	"ollama-webchat/internal/pkg/pullProgress"
	"ollama-webchat/internal/pkg/sessions"
	"ollama-webchat/internal/pkg/settings"
	"ollama-webchat/internal/pkg/staticAssets"
	"ollama-webchat/internal/pkg/web"
	"ollama-webchat/internal/pkg/websocketServer"
	webAssets "ollama-webchat/web"
)

// Windows configuration examples
// cmd /V /C "set OLLAMA_WEBCHAT_PORT=321&& ollama-webchat.exe"
// ollama-webchat.exe --Port 123

// Linux configuration examples
// OLLAMA_WEBCHAT_PORT=321 ./ollama-webchat
// ./ollama-webchat --Port 123

const applicationName = "ollama-webchat"
const serverShutdownTimeout = 5 * time.Second
const embedFsRoot = "static"
const templatesDir = "templates"
const uiUrlPrefix = "/chat"
const defaultUiUrl = "index.html"

func main() {
	setupZerolog()

	log.Info().Msg("Parsing configuration")
	appConfig := &applicationConfig{}
	config.Parse(appConfig, applicationName)

	log.Info().Msg("Starting up")

	templates, err := web.TemplateParseFSRecursive(webAssets.TemplateFS, templatesDir, ".gohtml", nil)
	if err != nil {
		log.Panic().Err(err).Msg("template parsing failed")
	}

	settingsStore, err := settings.Open(appConfig.SettingsFile)
	if err != nil {
		log.Panic().Err(err).Msg("settings.Open() failed")
	}
	defer func() {
		if err := settingsStore.Close(); err != nil {
			log.Error().Err(err).Msg("settings.Store.Close() failed")
		}
	}()

	baseUrl, err := settingsStore.Get(settings.KeyBaseUrl, appConfig.OllamaBaseUrl)
	if err != nil {
		log.Panic().Err(err).Msg("settings.Store.Get() failed")
	}

	transport := ollama.NewHolder(ollama.NewClient(ollama.ClientConfig{BaseURL: baseUrl}))
	log.Info().Str("base_url", transport.BaseUrl()).Msg("Inference server transport configured")

	catalog := modelCatalog.New(transport, settingsStore)
	pullRegistry := pullProgress.NewRegistry(pullProgress.DefaultClearDelay)

	sessionManager := sessions.New(func(responseFunc chatSession.ChatBlockResponseFunc) chatSession.ChatSession {
		return chatSession.New(transport, catalog.Selected(), responseFunc)
	})

	notificationServer := websocketServer.New()
	handlers := httpHandlers.New(templates, sessionManager, notificationServer,
		catalog, transport, pullRegistry, settingsStore)

	listener := createNetListener(appConfig)
	server := startHttpServer(listener, handlers, notificationServer, appConfig.SimulatedDelay)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	<-done

	log.Info().Msg("Application stopping")

	ctx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer func() {
		cancel()
	}()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server.Shutdown failed")
	}

	sessionManager.Shutdown()

	time.Sleep(time.Second * 1) // Give some time for graceful shutdown
	log.Info().Msg("Application stopped")
}

func startHttpServer(listener net.Listener, handlers *httpHandlers.ChatHandlers,
	notificationServer websocketServer.WebsocketServer,
	simulatedDelay int) *http.Server {

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	httpLogger := httplog.NewLogger("backend-api", httplog.Options{
		LogLevel: slog.LevelDebug,
		JSON:     true,
		Concise:  true,
	})

	router := chi.NewRouter()
	router.Use(httplog.RequestLogger(httpLogger))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{
			"https://*",
			"http://*",
		},
	}))

	router.Handle(uiUrlPrefix+"*", staticAssets.Handler(webAssets.EmbedFs, embedFsRoot, uiUrlPrefix, defaultUiUrl))

	router.HandleFunc("/api/notifications", notificationServer.Handler)

	router.Handle("GET /api/main", web.Handler{Request: handlers.Main,
		SimulatedDelay: simulatedDelay})

	router.Handle("POST /api/ask", web.Handler{Request: handlers.Ask,
		SimulatedDelay: simulatedDelay})

	router.Handle("GET /api/models", web.Handler{Request: handlers.Models,
		SimulatedDelay: simulatedDelay})

	router.Handle("POST /api/models/select", web.Handler{Request: handlers.SelectModel,
		SimulatedDelay: simulatedDelay})

	router.Handle("GET /api/models/detail", web.Handler{Request: handlers.ModelDetail,
		SimulatedDelay: simulatedDelay})

	router.Handle("POST /api/models/pull", web.Handler{Request: handlers.Pull,
		SimulatedDelay: simulatedDelay})

	router.Handle("POST /api/server-url", web.Handler{Request: handlers.ServerUrl,
		SimulatedDelay: simulatedDelay})

	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, uiUrlPrefix, http.StatusPermanentRedirect)
	})

	server := &http.Server{
		Handler: router,
	}

	go func() {
		log.Info().Msg("Server is about to start")

		err := server.Serve(listener)
		if err != nil {
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal().Err(err).Msg("server.ListenAndServe failed")
			}
		}

		log.Info().Msg("Server stopped")
	}()
	return server
}

func createNetListener(appConfig *applicationConfig) net.Listener {
	listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", appConfig.Host, appConfig.Port))
	if err != nil {
		log.Fatal().Err(err).Msg("net.Listen failed")
	}

	return listener
}

func setupZerolog() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = zerolog.New(os.Stderr).
		With().
		Timestamp().
		Logger()
}
