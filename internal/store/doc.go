// Package store connects the query builder to a database.
//
// It opens connections for the supported drivers, runs compiled statements
// and converts the driver's result rows into ir.Row values. SQLite databases
// are opened with the same pragmas everywhere:
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Supported drivers are sqlite3 (mattn/go-sqlite3), sqlite (modernc.org/sqlite),
// mysql (go-sql-driver/mysql), postgres (lib/pq) and pgx (jackc/pgx stdlib).
package store
