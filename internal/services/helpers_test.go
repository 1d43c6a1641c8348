package services

import "github.com/jackc/pgx/v5/pgconn"

// errUniqueViolation mimics what the driver surfaces when a unique
// constraint fires.
var errUniqueViolation = &pgconn.PgError{Code: "23505"}
