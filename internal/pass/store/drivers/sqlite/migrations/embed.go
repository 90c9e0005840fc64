package migrations

import "embed"

// Migrations holds the embedded schema migrations for the client state
// database.
//
//go:embed *.sql
var Migrations embed.FS
