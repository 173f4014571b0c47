// Package labdesk provides embedded assets for production builds.
package labdesk

import "embed"

// Embedded assets. In dev mode (IsDev=true) the router reads them from disk instead.

//go:embed all:frontend/static
var StaticFS embed.FS

//go:embed all:frontend/templates
var TemplateFS embed.FS
