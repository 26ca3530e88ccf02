// Package web carries the embedded UI: the HTML templates rendered from the
// binary and the static assets served under /static/.
package web

import "embed"

//go:embed templates/*.html
var TemplatesFS embed.FS

//go:embed static/*
var StaticFS embed.FS
