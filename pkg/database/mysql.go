package database

import (
	"fincra-wisdom/internal/config"
	"fincra-wisdom/internal/model"
	"fincra-wisdom/pkg/log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

var DB *gorm.DB

// InitMySQL opens the MySQL connection pool and, when enabled, migrates the schema.
func InitMySQL(cfg config.MySQLConfig) {
	var err error
	// TranslateError maps unique index violations to gorm.ErrDuplicatedKey.
	DB, err = gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect database", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		log.Fatal("failed to get sql.DB", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if cfg.AutoMigrate {
		if err := AutoMigrate(DB); err != nil {
			log.Fatal("failed to migrate database schema", err)
		}
	}

	log.Info("MySQL database connected successfully")
}

// AutoMigrate creates or updates every table the service owns.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Circle{},
		&model.Department{},
		&model.Document{},
		&model.SuggestedDocument{},
		&model.Notification{},
	)
}
