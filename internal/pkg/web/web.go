package web

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/rs/zerolog/log"
)

// RenderResponse executes the named template into an HTML response. A
// template failure degrades to an empty 500 so a half-rendered fragment never
// reaches the browser.
func RenderResponse(status int, templates *template.Template, templateName string, data any, headers Headers, cookie *http.Cookie) *Response {
	var buffer bytes.Buffer
	if err := templates.ExecuteTemplate(&buffer, templateName, data); err != nil {
		log.Error().Err(err).Str("template_name", templateName).Msg("templates.ExecuteTemplate() failed")
		return GetEmptyResponse(http.StatusInternalServerError, nil, nil)
	}

	return &Response{
		Status:      status,
		ContentType: "text/html",
		Content:     buffer.Bytes(),
		Headers:     headers,
		Cookie:      cookie,
	}
}

// GetEmptyResponse builds a body-less response carrying only status, headers
// and an optional cookie.
func GetEmptyResponse(status int, headers Headers, cookie *http.Cookie) *Response {
	return &Response{
		Status:  status,
		Headers: headers,
		Cookie:  cookie,
	}
}
