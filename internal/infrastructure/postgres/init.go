package postgres

import (
	"fmt"
	"log"

	"github.com/LavaJover/shvark-payment-service/internal/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func InitDB(cfg *config.PaymentConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.PaymentDB.Dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	if cfg.PaymentDB.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.PaymentDB.MaxOpenConns)
	}

	return db, nil
}

func MustInitDB(cfg *config.PaymentConfig) *gorm.DB {
	db, err := InitDB(cfg)
	if err != nil {
		log.Fatalf("failed to init db: %v\n", err.Error())
	}
	return db
}
