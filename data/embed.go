// Package data ships the SQL that container entrypoints run before the
// service starts. AutoMigrate reconciles any drift against the models, so
// the DDL here only has to match the schema shape, not every tag detail.
package data

import (
	_ "embed"
)

var (
	//go:embed initdb/mariadb/002-ddl-tables.sql
	InitdbMariaDBTables string

	//go:embed initdb/mariadb/003-ddl-privileges.sql
	InitdbMariaDBPrivileges string
)
