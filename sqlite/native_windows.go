//go:build windows

package sqlite

import "syscall"

// Candidate library names, tried in order. winsqlite3.dll ships with
// Windows 10 and later.
var libraryNames = []string{
	"sqlite3.dll",
	"winsqlite3.dll",
}

func openLibrary(name string) (uintptr, error) {
	handle, err := syscall.LoadLibrary(name)
	return uintptr(handle), err
}
