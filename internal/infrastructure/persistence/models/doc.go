// Package models holds the GORM table mappings for the ledger. Each model
// converts to and from its domain type with ToDomain and a FromDomain
// constructor; the schema itself is owned by the SQL migrations.
package models
