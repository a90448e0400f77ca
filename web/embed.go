package web

import "embed"

var (
	//go:embed templates
	TemplateFS embed.FS

	//go:embed static
	EmbedFs embed.FS
)
