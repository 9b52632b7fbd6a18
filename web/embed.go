// Package web embeds the static dashboard assets served by the HTTP server.
package web

import "embed"

// Assets holds the built dashboard files under dist/.
//
//go:embed dist
var Assets embed.FS
