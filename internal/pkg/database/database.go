package database

import (
	"fmt"

	"github.com/aiphoto/backend/internal/model"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"k8s.io/klog/v2"
)

// InitDB 打开数据库并迁移表结构，dbType 为 mysql 或 sqlite
func InitDB(dbType, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch dbType {
	case "mysql":
		dialector = mysql.Open(dsn)
	case "", "sqlite":
		// 使用 github.com/glebarez/sqlite 驱动
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	if dbType != "mysql" {
		// SQLite 单连接写入，内存库也依赖同一连接保持数据
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	klog.V(6).Infof("[DB] 数据库初始化完成: type=%s", dbType)
	return db, nil
}

// Migrate 同步流水线用到的表结构
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&model.KnowledgeEntry{}, &model.GenerationTask{})
}
