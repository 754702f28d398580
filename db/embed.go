// Package db embeds the catalog schema applied at startup.
package db

import _ "embed"

// Schema holds the DDL for the events, menus, and dishes tables. It is
// idempotent (CREATE IF NOT EXISTS) so applying it on every boot is safe.
//
//go:embed migrations/001_schema.sql
var Schema string
