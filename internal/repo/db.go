package repo

import (
	"CardVault/internal/model"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

// InitDB открывает базу истории задач и применяет миграции.
// DSN вида postgres://... или с host= уходит в PostgreSQL, остальное — файл SQLite (modernc).
func InitDB(dsn string) (*gorm.DB, error) {
	var dial gorm.Dialector
	sqlite := !isPostgresDSN(dsn)
	if sqlite {
		dial = gormsqlite.Dialector{DriverName: "sqlite", DSN: dsn}
	} else {
		dial = postgres.Open(dsn)
	}

	db, err := gorm.Open(dial, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if sqlite {
		// SQLite не любит параллельных писателей: HTTP-хендлеры и воркер пишут из разных горутин
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate создаёт таблицы истории.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.EnrichJob{}, &model.RefreshRun{}); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}

func isPostgresDSN(dsn string) bool {
	d := strings.ToLower(strings.TrimSpace(dsn))
	return strings.HasPrefix(d, "postgres://") ||
		strings.HasPrefix(d, "postgresql://") ||
		strings.Contains(d, "host=")
}
