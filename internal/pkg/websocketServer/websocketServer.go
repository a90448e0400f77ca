package websocketServer

import (
	"github.com/google/uuid"
	"net/http"
)

// WebsocketServer pushes server-rendered fragments (chat deltas, pull
// progress) to the browser session that owns them.
type WebsocketServer interface {
	Handler(responseWriter http.ResponseWriter, request *http.Request)
	Publish(id uuid.UUID, message []byte)
}
