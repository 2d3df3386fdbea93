// Package sqlite implements the tessera Connection capability on top of
// libsqlite3, loaded at runtime through purego so the module builds and
// runs without CGO.
package sqlite

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

// SQLite result codes.
const (
	okCode       = 0
	errInterrupt = 9
	rowCode      = 100
	doneCode     = 101
)

// Column type codes from sqlite3_column_type.
const (
	typeInteger = 1
	typeFloat   = 2
	typeText    = 3
	typeBlob    = 4
	typeNull    = 5
)

// Open flags for sqlite3_open_v2.
const (
	openReadWrite = 0x00000002
	openCreate    = 0x00000004
	openURI       = 0x00000040
	openNoMutex   = 0x00008000
)

// transientDestructor is SQLITE_TRANSIENT: it forces SQLite to copy bound
// text/blob data immediately, which is required because purego's temporary
// C strings are only valid for the duration of the call.
var transientDestructor = ^uintptr(0)

// Registered C ABI entry points.
var (
	libOpenV2             func(filename string, db *uintptr, flags int32, vfs uintptr) int32
	libCloseV2            func(db uintptr) int32
	libErrmsg             func(db uintptr) string
	libPrepareV2          func(db uintptr, sql string, nByte int32, stmt *uintptr, tail *uintptr) int32
	libStep               func(stmt uintptr) int32
	libFinalize           func(stmt uintptr) int32
	libReset              func(stmt uintptr) int32
	libClearBindings      func(stmt uintptr) int32
	libBindParameterCount func(stmt uintptr) int32
	libBindNull           func(stmt uintptr, idx int32) int32
	libBindInt64          func(stmt uintptr, idx int32, v int64) int32
	libBindDouble         func(stmt uintptr, idx int32, v float64) int32
	libBindText           func(stmt uintptr, idx int32, v string, n int32, destructor uintptr) int32
	libBindBlob           func(stmt uintptr, idx int32, v *byte, n int32, destructor uintptr) int32
	libColumnCount        func(stmt uintptr) int32
	libColumnName         func(stmt uintptr, idx int32) string
	libColumnDecltype     func(stmt uintptr, idx int32) string
	libColumnType         func(stmt uintptr, idx int32) int32
	libColumnInt64        func(stmt uintptr, idx int32) int64
	libColumnDouble       func(stmt uintptr, idx int32) float64
	libColumnText         func(stmt uintptr, idx int32) string
	libColumnBlob         func(stmt uintptr, idx int32) uintptr
	libColumnBytes        func(stmt uintptr, idx int32) int32
	libChanges            func(db uintptr) int32
	libInterrupt          func(db uintptr)
	libVersion            func() string
)

var (
	loadOnce sync.Once
	loadErr  error
)

// ensureLoaded resolves libsqlite3 once per process and registers every
// entry point the driver needs.
func ensureLoaded() error {
	loadOnce.Do(func() {
		var handle uintptr
		var lastErr error
		for _, name := range libraryNames {
			handle, lastErr = openLibrary(name)
			if lastErr == nil {
				break
			}
		}
		if lastErr != nil {
			loadErr = fmt.Errorf("loading libsqlite3: %w", lastErr)
			return
		}

		purego.RegisterLibFunc(&libOpenV2, handle, "sqlite3_open_v2")
		purego.RegisterLibFunc(&libCloseV2, handle, "sqlite3_close_v2")
		purego.RegisterLibFunc(&libErrmsg, handle, "sqlite3_errmsg")
		purego.RegisterLibFunc(&libPrepareV2, handle, "sqlite3_prepare_v2")
		purego.RegisterLibFunc(&libStep, handle, "sqlite3_step")
		purego.RegisterLibFunc(&libFinalize, handle, "sqlite3_finalize")
		purego.RegisterLibFunc(&libReset, handle, "sqlite3_reset")
		purego.RegisterLibFunc(&libClearBindings, handle, "sqlite3_clear_bindings")
		purego.RegisterLibFunc(&libBindParameterCount, handle, "sqlite3_bind_parameter_count")
		purego.RegisterLibFunc(&libBindNull, handle, "sqlite3_bind_null")
		purego.RegisterLibFunc(&libBindInt64, handle, "sqlite3_bind_int64")
		purego.RegisterLibFunc(&libBindDouble, handle, "sqlite3_bind_double")
		purego.RegisterLibFunc(&libBindText, handle, "sqlite3_bind_text")
		purego.RegisterLibFunc(&libBindBlob, handle, "sqlite3_bind_blob")
		purego.RegisterLibFunc(&libColumnCount, handle, "sqlite3_column_count")
		purego.RegisterLibFunc(&libColumnName, handle, "sqlite3_column_name")
		purego.RegisterLibFunc(&libColumnDecltype, handle, "sqlite3_column_decltype")
		purego.RegisterLibFunc(&libColumnType, handle, "sqlite3_column_type")
		purego.RegisterLibFunc(&libColumnInt64, handle, "sqlite3_column_int64")
		purego.RegisterLibFunc(&libColumnDouble, handle, "sqlite3_column_double")
		purego.RegisterLibFunc(&libColumnText, handle, "sqlite3_column_text")
		purego.RegisterLibFunc(&libColumnBlob, handle, "sqlite3_column_blob")
		purego.RegisterLibFunc(&libColumnBytes, handle, "sqlite3_column_bytes")
		purego.RegisterLibFunc(&libChanges, handle, "sqlite3_changes")
		purego.RegisterLibFunc(&libInterrupt, handle, "sqlite3_interrupt")
		purego.RegisterLibFunc(&libVersion, handle, "sqlite3_libversion")
	})
	return loadErr
}

// LibVersion returns the loaded SQLite library version, loading the
// library if needed.
func LibVersion() (string, error) {
	if err := ensureLoaded(); err != nil {
		return "", err
	}
	return libVersion(), nil
}

// columnBlob copies the blob payload of the current row's column.
func columnBlob(stmt uintptr, idx int32) []byte {
	n := libColumnBytes(stmt, idx)
	if n <= 0 {
		return []byte{}
	}
	ptr := libColumnBlob(stmt, idx)
	if ptr == 0 {
		return []byte{}
	}
	out := make([]byte, n)
	copy(out, unsafe.Slice((*byte)(unsafe.Pointer(ptr)), n))
	return out
}
