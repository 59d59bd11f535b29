// Package store persists forecasts, items and weather samples through gorm.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/couchcryptid/gpv-forecast-service/internal/config"
	"github.com/couchcryptid/gpv-forecast-service/internal/domain"
)

// insertBatchSize bounds the rows per INSERT statement.
const insertBatchSize = 1000

// Store is the relational persistence layer. It is safe for concurrent use;
// every call draws its own pooled connection.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Dialector selects the gorm dialector for the configured driver.
func Dialector(cfg config.DBConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "postgres":
		return postgres.Open(fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)), nil
	case "mysql":
		return mysql.Open(fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name)), nil
	case "sqlite":
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
		return sqlite.Open(cfg.SQLitePath), nil
	default:
		return nil, fmt.Errorf("%w: unsupported DB_DRIVER %q", domain.ErrValidation, cfg.Driver)
	}
}

// Open connects to the configured database and creates missing tables.
func Open(ctx context.Context, cfg config.DBConfig, log *slog.Logger) (*Store, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}

	level := logger.Silent
	if cfg.Echo {
		level = logger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.New(slog.NewLogLogger(log.Handler(), slog.LevelDebug), logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc: domain.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}
	return ready(ctx, db, cfg.Driver, log)
}

// ready ensures the schema on db. The pool is closed when that fails.
func ready(ctx context.Context, db *gorm.DB, driver string, log *slog.Logger) (*Store, error) {
	s := New(db, log)
	if err := s.EnsureSchema(ctx); err != nil {
		if cerr := s.Close(); cerr != nil {
			log.Warn("database close error", "error", cerr)
		}
		return nil, err
	}
	log.Info("database ready", "driver", driver)
	return s, nil
}

// New wraps an existing gorm handle.
func New(db *gorm.DB, log *slog.Logger) *Store {
	return &Store{db: db, logger: log}
}

// EnsureSchema creates each table that does not exist yet. Existing tables are left alone.
func (s *Store) EnsureSchema(ctx context.Context) error {
	m := s.db.WithContext(ctx).Migrator()
	for _, model := range []any{&domain.Item{}, &domain.WeatherSample{}, &domain.Forecast{}} {
		if m.HasTable(model) {
			continue
		}
		if err := m.CreateTable(model); err != nil {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}
	return nil
}

// CheckReadiness pings the database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ReplaceForecasts deletes every forecast row and inserts rows in one transaction.
// On failure the previous rows are kept.
func (s *Store) ReplaceForecasts(ctx context.Context, rows []domain.Forecast) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&domain.Forecast{})
		if res.Error != nil {
			return fmt.Errorf("delete forecasts: %w", res.Error)
		}
		s.logger.Info("forecasts cleared", "rows", res.RowsAffected)
		return insertForecasts(tx, rows)
	})
}

// AppendForecasts inserts rows without touching existing ones.
func (s *Store) AppendForecasts(ctx context.Context, rows []domain.Forecast) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return insertForecasts(tx, rows)
	})
}

func insertForecasts(tx *gorm.DB, rows []domain.Forecast) error {
	if len(rows) == 0 {
		return nil
	}
	if err := tx.CreateInBatches(rows, insertBatchSize).Error; err != nil {
		return fmt.Errorf("insert forecasts: %w", err)
	}
	return nil
}

// ListForecasts returns every forecast row in primary key order.
func (s *Store) ListForecasts(ctx context.Context) ([]domain.Forecast, error) {
	rows := []domain.Forecast{}
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list forecasts: %w", err)
	}
	return rows, nil
}

// ListWeatherSamples returns every weather sample row in primary key order.
func (s *Store) ListWeatherSamples(ctx context.Context) ([]domain.WeatherSample, error) {
	rows := []domain.WeatherSample{}
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list weather samples: %w", err)
	}
	return rows, nil
}

// SeedDemo inserts the demo forecasts and weather samples into whichever of
// the two tables is empty. It returns the number of rows inserted into each.
func (s *Store) SeedDemo(ctx context.Context, now time.Time) (forecasts, samples int, err error) {
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&domain.Forecast{}).Count(&n).Error; err != nil {
			return fmt.Errorf("count forecasts: %w", err)
		}
		if n == 0 {
			rows := domain.DemoForecasts(now)
			if err := insertForecasts(tx, rows); err != nil {
				return err
			}
			forecasts = len(rows)
		}

		if err := tx.Model(&domain.WeatherSample{}).Count(&n).Error; err != nil {
			return fmt.Errorf("count weather samples: %w", err)
		}
		if n == 0 {
			rows := domain.DemoWeatherSamples()
			if err := tx.Create(&rows).Error; err != nil {
				return fmt.Errorf("insert weather samples: %w", err)
			}
			samples = len(rows)
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return forecasts, samples, nil
}

// CreateItem inserts item and fills in its id.
func (s *Store) CreateItem(ctx context.Context, item *domain.Item) error {
	item.ID = 0
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		return fmt.Errorf("create item: %w", err)
	}
	return nil
}

// ListItems returns every item in primary key order.
func (s *Store) ListItems(ctx context.Context) ([]domain.Item, error) {
	items := []domain.Item{}
	if err := s.db.WithContext(ctx).Order("id").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

// GetItem returns the item with id or domain.ErrItemNotFound.
func (s *Store) GetItem(ctx context.Context, id uint) (domain.Item, error) {
	var item domain.Item
	err := s.db.WithContext(ctx).First(&item, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Item{}, fmt.Errorf("%w: id %d", domain.ErrItemNotFound, id)
	}
	if err != nil {
		return domain.Item{}, fmt.Errorf("get item %d: %w", id, err)
	}
	return item, nil
}

// UpdateItem replaces every field of the item with id.
func (s *Store) UpdateItem(ctx context.Context, id uint, item domain.Item) (domain.Item, error) {
	item.ID = id
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.Item
		err := tx.First(&existing, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: id %d", domain.ErrItemNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("get item %d: %w", id, err)
		}
		if err := tx.Model(&existing).Select("*").Updates(item).Error; err != nil {
			return fmt.Errorf("update item %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return domain.Item{}, err
	}
	return item, nil
}

// DeleteItem removes the item with id or returns domain.ErrItemNotFound.
func (s *Store) DeleteItem(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&domain.Item{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete item %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: id %d", domain.ErrItemNotFound, id)
	}
	return nil
}
