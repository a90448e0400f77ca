package web

import (
	"net/http"
	"time"
)

type Headers map[string]string

// RequestFunc produces the full response for one request. SimulatedDelay lets
// local development approximate a slow backend for HTMX interactions.
type RequestFunc func(request *http.Request, simulatedDelay int) *Response

type Handler struct {
	Request        RequestFunc
	SimulatedDelay int
}

func (handler Handler) ServeHTTP(responseWriter http.ResponseWriter, request *http.Request) {
	if handler.SimulatedDelay > 0 {
		time.Sleep(time.Duration(handler.SimulatedDelay) * time.Millisecond)
	}

	response := handler.Request(request, handler.SimulatedDelay)
	response.Write(responseWriter)
}
