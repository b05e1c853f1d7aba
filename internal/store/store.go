package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var ErrConnect = errors.New("connect to postgres")

// Store persists processed series and report rows in Postgres. gorm runs
// on top of the same pgx pool used for raw reads.
type Store struct {
	pool   *pgxpool.Pool
	sqlDB  *sql.DB
	db     *gorm.DB
	logger *zap.Logger

	mu      sync.Mutex
	pending []ProcessedSeries
}

func Open(ctx context.Context, url string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnect, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping: %v", ErrConnect, err)
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %v", ErrConnect, err)
	}

	s := &Store{pool: pool, sqlDB: sqlDB, db: db, logger: logger}
	if err := s.migrate(ctx); err != nil {
		return nil, multierr.Append(err, s.Close())
	}
	logger.Info("postgres store ready")
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&ProcessedSeries{}, &DraftReport{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	err := s.sqlDB.Close()
	s.pool.Close()
	return err
}
