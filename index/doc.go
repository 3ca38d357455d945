// Package index is the local relational index: identities, document records,
// shares and public links.
//
// Two dialects are supported. Postgres is reached through the pgx stdlib
// driver; SQLite uses the pure-Go modernc driver and suits single-node and
// test deployments. Queries use $n placeholders, which both drivers accept.
// Timestamps are stored as unix milliseconds so both dialects share one
// scanning path.
//
// Repositories are bound to a DBTX, so they run equally against *sql.DB and
// *sql.Tx. Missing rows surface as interfaces.ErrNotFound; every other driver
// failure is wrapped as "db error".
package index
