// Package db embeds the schema for the Postgres row store mirror.
package db

import _ "embed"

// Schema contains the DDL for the table and row mirror.
//
//go:embed migrations/001_schema.sql
var Schema string
