package db

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LockForUpdate 在事务内给后续查询附加 SELECT ... FOR UPDATE。
// SQLite 方言不认识 FOR UPDATE（写事务本身就是全库串行），直接透传。
func LockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector != nil && tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
