// Package scripts embeds the Lua scripts loaded before any user script.
package scripts

import "embed"

// CoreScripts holds core/*.lua, loaded in file name order.
//
//go:embed core/*.lua
var CoreScripts embed.FS
