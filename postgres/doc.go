// Package postgres implements the relational repositories on PostgreSQL
// through database/sql and lib/pq. Nullable text columns map to empty
// strings in the domain structs; unique-violation errors surface as
// [user.ErrConflict].
package postgres
