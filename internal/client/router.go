package client

import "strings"

// ProtectedPrefixes are the paths that require a valid session.
var ProtectedPrefixes = []string{"/dashboard", "/admin", "/settings"}

// IsProtected matches whole path segments, so /administrator is public.
func IsProtected(path string) bool {
	path = normalizePath(path)
	for _, prefix := range ProtectedPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// ResolveMode is the gate every protected navigation goes through.
func ResolveMode(installed, sessionValid bool) Mode {
	switch {
	case !installed:
		return ModeInstaller
	case sessionValid:
		return ModeDashboard
	default:
		return ModeLogin
	}
}

func normalizePath(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if trimmed := strings.TrimRight(path, "/"); trimmed != "" {
		path = trimmed
	} else {
		path = "/"
	}
	return path
}
