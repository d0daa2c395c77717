// Package web provides the embedded assets for the playback monitor page.
//
// The static/ directory is embedded at build time. During development, if
// the directory exists on the filesystem it is used instead, so the page
// can be edited without rebuilding.
package web

import (
	"embed"
	"io/fs"
	"os"
)

//go:embed static/*
var assets embed.FS

// Assets returns the monitor page filesystem. The devPath parameter names
// the directory to prefer during development; if empty it defaults to
// "./web/static" relative to the working directory.
func Assets(devPath string) fs.FS {
	if devPath == "" {
		devPath = "./web/static"
	}

	if stat, err := os.Stat(devPath); err == nil && stat.IsDir() {
		return os.DirFS(devPath)
	}

	subFS, err := fs.Sub(assets, "static")
	if err != nil {
		panic("failed to access embedded web assets: " + err.Error())
	}
	return subFS
}
