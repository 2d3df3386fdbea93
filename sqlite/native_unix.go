//go:build !windows

package sqlite

import "github.com/ebitengine/purego"

// Candidate library names, tried in order.
var libraryNames = []string{
	"libsqlite3.so.0",
	"libsqlite3.so",
	"libsqlite3.dylib",
	"/usr/lib/libsqlite3.dylib",
}

func openLibrary(name string) (uintptr, error) {
	return purego.Dlopen(name, purego.RTLD_NOW|purego.RTLD_GLOBAL)
}
