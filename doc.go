// Package tessera provides a uniform driver abstraction for browsing and
// mutating tables across heterogeneous SQL backends (PostgreSQL, MySQL,
// SQLite, SQL Server).
//
// The package defines the capability interfaces (Connection, Transaction,
// CancelHandle, SchemaIntrospection), the Value variant type that carries
// data across the driver boundary, and the TableService pagination engine
// that picks a counting strategy per backend cost class: exact COUNT(*)
// where it is cheap, catalog estimates where it is a full scan, and no
// count at all for filtered browses on slow-count backends.
//
// Backend implementations live in the subpackages sqlite, postgres, mysql
// and mssql. The sqlite backend loads libsqlite3 at runtime via purego, so
// no CGO is required anywhere in the module.
package tessera
