// Package db embeds the SQL schema shared by the API server and the
// command line tooling.
package db

import _ "embed"

// Schema contains the DDL for all storefront tables. It is applied
// idempotently at startup.
//
//go:embed migrations/001_schema.sql
var Schema string
