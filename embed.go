package blogwidgets

import "embed"

// EmbeddedAssets contains static assets shipped with the package:
// site.css, served at /public/site.css.
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
