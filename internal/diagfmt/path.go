package diagfmt

import (
	"path/filepath"
	"strings"

	"ownc/internal/source"
)

// autoPathLimit: в авто-режиме более длинные пути сокращаются до имени файла.
const autoPathLimit = 40

func formatPath(f *source.File, mode PathMode, baseDir string) string {
	if f == nil {
		return "<unknown>"
	}
	p := f.Path
	switch mode {
	case PathModeAbsolute:
		if f.Flags&source.FileVirtual != 0 {
			return p
		}
		if abs, err := filepath.Abs(p); err == nil {
			return filepath.ToSlash(abs)
		}
		return p
	case PathModeRelative:
		if baseDir == "" {
			return p
		}
		if rel, err := filepath.Rel(baseDir, p); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel)
		}
		return p
	case PathModeBasename:
		return filepath.Base(p)
	default:
		if len(p) > autoPathLimit && filepath.IsAbs(p) {
			return filepath.Base(p)
		}
		return p
	}
}
