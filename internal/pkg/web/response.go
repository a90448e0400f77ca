package web

import (
	"net/http"

	"github.com/rs/zerolog/log"
)

// Response is the fully materialized result of one handler invocation. A nil
// response writes a bare 200.
type Response struct {
	Status      int
	ContentType string
	Content     []byte
	Headers     Headers
	Cookie      *http.Cookie
}

func (response *Response) Write(responseWriter http.ResponseWriter) {
	if response == nil {
		responseWriter.WriteHeader(http.StatusOK)
		return
	}

	if response.Cookie != nil {
		http.SetCookie(responseWriter, response.Cookie)
	}
	if response.ContentType != "" {
		responseWriter.Header().Set("Content-Type", response.ContentType)
	}
	for name, value := range response.Headers {
		responseWriter.Header().Set(name, value)
	}

	responseWriter.WriteHeader(response.Status)
	if _, err := responseWriter.Write(response.Content); err != nil {
		log.Error().Err(err).Msg("http.ResponseWriter.Write() failed")
	}
}
