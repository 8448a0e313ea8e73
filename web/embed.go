// Package web embeds the dashboard's static front end.
package web

import "embed"

//go:embed static
var Static embed.FS
