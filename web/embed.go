// Package web embeds the track request page served at "/".
package web

import "embed"

// Content holds index.html and the assets it loads from /static/.
//
//go:embed index.html app.js styles.css
var Content embed.FS
