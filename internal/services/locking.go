// internal/services/locking.go
package services

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// lockForUpdate adds a FOR UPDATE clause on dialects that support it. SQLite
// (the test database) has a single writer and rejects the clause; the guarded
// conditional updates below stay correct without it.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
