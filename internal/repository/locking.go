package repository

import (
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// dbDialectName 获取数据库方言名称，默认按 sqlite 处理。
func dbDialectName(db *gorm.DB) string {
	if db == nil || db.Dialector == nil {
		return "sqlite"
	}
	name := strings.ToLower(strings.TrimSpace(db.Dialector.Name()))
	if name == "" {
		return "sqlite"
	}
	return name
}

// withLockForUpdate 为分配读加行级排他锁（SELECT ... FOR UPDATE）。
// sqlite 无行锁语法且为单写者模型，直接返回原查询。
func withLockForUpdate(query *gorm.DB) *gorm.DB {
	switch dbDialectName(query) {
	case "postgres", "postgresql":
		return query.Clauses(clause.Locking{Strength: "UPDATE"})
	default:
		return query
	}
}
