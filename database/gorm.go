package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/sahilchouksey/adaptive-tutor-api/config"
	"github.com/sahilchouksey/adaptive-tutor-api/model"
	"github.com/sahilchouksey/adaptive-tutor-api/utils/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Storage defines the lifecycle of the relational store
type Storage interface {
	Init() error
	Reset() error
	Close() error
	HealthCheck() error
	GetDB() *gorm.DB
}

type GORMStore struct {
	db  *gorm.DB
	log *logger.Logger
}

// Models lists every table, parents before children.
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Subject{},
		&model.Week{},
		&model.Material{},
		&model.MaterialText{},
		&model.ConceptContent{},
		&model.Quiz{},
		&model.Question{},
		&model.UserResponse{},
		&model.QuizReport{},
		&model.Notification{},
		&model.CronJobLog{},
	}
}

// Open connects to PostgreSQL or SQLite depending on DB_DRIVER
func Open(cfg *config.EnvironmentVariable, log *logger.Logger) (*GORMStore, error) {
	gormLogger := gormlogger.Default.LogMode(gormlogger.Info)
	if cfg.GO_ENV == "production" {
		gormLogger = gormlogger.Default.LogMode(gormlogger.Error)
	}

	var dialector gorm.Dialector
	switch cfg.DB_DRIVER {
	case "sqlite":
		dialector = sqlite.Open(cfg.SQLITE_PATH)
	case "postgres", "":
		dsn := fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
			cfg.DB_HOST,
			cfg.DB_USER_NAME,
			cfg.DB_PASSWORD,
			cfg.DB_NAME,
			cfg.DB_PORT,
			cfg.DB_SSL_MODE,
		)
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DB_DRIVER)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:      gormLogger,
		PrepareStmt: cfg.DB_DRIVER != "sqlite",
	})
	if err != nil {
		log.Error("unable to connect to database", "driver", cfg.DB_DRIVER, "error", err)
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.DB_DRIVER == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	log.Info("connected to database", "driver", cfg.DB_DRIVER)
	return &GORMStore{db: db, log: log}, nil
}

// NewGORMStore wraps an already opened connection
func NewGORMStore(db *gorm.DB, log *logger.Logger) *GORMStore {
	return &GORMStore{db: db, log: log}
}

// Init runs AutoMigrate for all models
func (s *GORMStore) Init() error {
	s.log.Info("running AutoMigrate")
	if err := s.db.AutoMigrate(Models()...); err != nil {
		s.log.Error("AutoMigrate failed", "error", err)
		return err
	}
	return nil
}

// Reset drops every table and recreates the schema
func (s *GORMStore) Reset() error {
	s.log.Warn("RESET_DB set, dropping all tables")
	models := Models()
	// drop children first so foreign keys never block
	for i := len(models) - 1; i >= 0; i-- {
		if err := s.db.Migrator().DropTable(models[i]); err != nil {
			return fmt.Errorf("failed to drop table for %T: %w", models[i], err)
		}
	}
	return s.Init()
}

// Close closes the database connection
func (s *GORMStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetDB returns the GORM DB instance
func (s *GORMStore) GetDB() *gorm.DB {
	return s.db
}

// HealthCheck verifies the database connection is alive
func (s *GORMStore) HealthCheck() error {
	if s.db == nil {
		return errors.New("database not initialized")
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
