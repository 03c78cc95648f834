package staticfiles

import (
	"embed"
	"io/fs"
)

//go:embed css/* js/*
var embedded embed.FS

// EmbeddedFS exposes the game's css/js assets compiled into the binary.
func EmbeddedFS() fs.FS {
	return embedded
}
