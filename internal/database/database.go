package database

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"

	"github.com/avolkov/sonet/internal/config"
	appLogger "github.com/avolkov/sonet/internal/logger"
)

// Open opens the authoritative store: writes go to the master authority,
// reads are load-balanced round-robin over the replica set. Callers that must
// read their own writes pin to the master with dbresolver.Write.
func Open(cfg *config.PostgresConfig) (*gorm.DB, error) {
	masterDSN, err := cfg.DSN(cfg.MasterAuthority)
	if err != nil {
		return nil, fmt.Errorf("master authority: %w", err)
	}

	gormLogger := logger.New(
		&gormLogWriter{},
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(postgres.Open(masterDSN), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to master: %w", err)
	}

	replicas := make([]gorm.Dialector, 0)
	for _, authority := range cfg.ReplicaList() {
		dsn, err := cfg.DSN(authority)
		if err != nil {
			return nil, fmt.Errorf("replica authority: %w", err)
		}
		replicas = append(replicas, postgres.Open(dsn))
	}

	resolver := dbresolver.Register(dbresolver.Config{
		Replicas: replicas,
		Policy:   dbresolver.RoundRobinPolicy(),
	}).
		SetMaxOpenConns(cfg.ReplicaPoolMaxSize).
		SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.Use(resolver); err != nil {
		return nil, fmt.Errorf("failed to register replica resolver: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MasterPoolMaxSize)
	sqlDB.SetMaxIdleConns(cfg.MasterPoolMaxSize / 10)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	appLogger.Info("Database connection established",
		zap.String("master", cfg.MasterAuthority),
		zap.Strings("replicas", cfg.ReplicaList()),
		zap.String("database", cfg.DBName),
		zap.Int("master_pool_max_size", cfg.MasterPoolMaxSize),
		zap.Int("replica_pool_max_size", cfg.ReplicaPoolMaxSize),
	)

	return db, nil
}

// Close closes the underlying connection pools
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	appLogger.Info("Database connection closed")
	return nil
}

// HealthCheck pings the master pool
func HealthCheck(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database not initialized")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}

// gormLogWriter adapts gorm's logger onto zap
type gormLogWriter struct{}

func (w *gormLogWriter) Printf(format string, args ...interface{}) {
	appLogger.Warn(fmt.Sprintf(format, args...))
}
