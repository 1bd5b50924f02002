// internal/storage/postgres.go
package storage

import (
	"context"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"message-api/internal/model"
)

const pingTimeout = 5 * time.Second

type Storage struct {
	DB *gorm.DB
}

// NewStorage opens the database through gorm on top of the lib/pq driver and
// verifies the connection. log may be nil.
func NewStorage(dsn string, log *logrus.Logger) (*Storage, error) {
	cfg := &gorm.Config{Logger: gormlogger.Discard}
	if log != nil {
		cfg.Logger = gormlogger.New(log, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		})
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		DriverName: "postgres",
		DSN:        dsn,
	}), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	s := &Storage{DB: db}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := s.Ping(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	return s, nil
}

// Migrate creates the messages table when it does not exist yet.
func (s *Storage) Migrate(ctx context.Context) error {
	if err := s.DB.WithContext(ctx).AutoMigrate(&model.Message{}); err != nil {
		return fmt.Errorf("failed to migrate messages table: %w", err)
	}
	return nil
}

// CreateMessage inserts m and fills in its ID.
func (s *Storage) CreateMessage(ctx context.Context, m *model.Message) error {
	if err := s.DB.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ListMessages returns every stored message in insertion order.
func (s *Storage) ListMessages(ctx context.Context) ([]model.Message, error) {
	messages := make([]model.Message, 0)
	if err := s.DB.WithContext(ctx).Order("id").Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

func (s *Storage) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Storage) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
