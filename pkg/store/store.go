// Package store persists data files and their scan metadata with GORM.
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ChrisMcGann/scanmeta/pkg/core"
)

const defaultBatchSize = 500

var (
	// ErrDataFileNotFound indicates the requested data file does not exist.
	ErrDataFileNotFound = errors.New("data file not found")

	// ErrUnsupportedDriver indicates a database driver other than sqlite or mysql.
	ErrUnsupportedDriver = errors.New("unsupported database driver")
)

// Config holds database configuration for the store.
type Config struct {
	// Driver is "sqlite" (default) or "mysql".
	Driver string
	// DSN is the MySQL data source name. For SQLite it overrides Path.
	DSN string
	// Path is the SQLite database file.
	Path string
	// BatchSize is the number of rows per INSERT statement.
	BatchSize int
	// Debug enables GORM SQL logging.
	Debug bool
	// Logger receives store events. Defaults to a no-op logger.
	Logger *zap.Logger
}

// Store wraps a GORM connection holding the data_files and scan_metadata tables.
type Store struct {
	db        *gorm.DB
	driver    string
	batchSize int
	logger    *zap.Logger
}

// SQLiteDSN builds a DSN with the pragmas the store relies on.
func SQLiteDSN(path string) string {
	return fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON", path)
}

func (c *Config) dialector() (gorm.Dialector, error) {
	switch strings.ToLower(c.Driver) {
	case "", "sqlite", "sqlite3":
		dsn := c.DSN
		if dsn == "" {
			if c.Path == "" {
				return nil, fmt.Errorf("sqlite database path is required")
			}
			dsn = SQLiteDSN(c.Path)
		}
		return sqlite.Open(dsn), nil
	case "mysql":
		if c.DSN == "" {
			return nil, fmt.Errorf("mysql requires a DSN")
		}
		return mysql.Open(c.DSN), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, c.Driver)
	}
}

// Open connects to the configured database. Call AutoMigrate before use on a
// fresh database.
func Open(cfg Config) (*Store, error) {
	dialector, err := cfg.dialector()
	if err != nil {
		return nil, err
	}

	logLevel := logger.Silent
	if cfg.Debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dialector.Name() == "mysql" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying database: %w", err)
		}
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	log.Debug("opened database", zap.String("driver", dialector.Name()))

	return &Store{
		db:        db,
		driver:    dialector.Name(),
		batchSize: batchSize,
		logger:    log,
	}, nil
}

// AutoMigrate creates or updates the schema.
func (s *Store) AutoMigrate() error {
	if err := s.db.AutoMigrate(&core.DataFile{}, &core.ScanMetadata{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// DB returns the underlying GORM database.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Driver returns the dialect name, "sqlite" or "mysql".
func (s *Store) Driver() string {
	return s.driver
}

// Close closes the database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	return sqlDB.Close()
}

// RegisterDataFile creates the owning record for a new ingest and assigns it
// a UUID.
func (s *Store) RegisterDataFile(ctx context.Context, name, path, format string) (*core.DataFile, error) {
	file := &core.DataFile{
		UUID:   uuid.NewString(),
		Name:   name,
		Path:   path,
		Format: format,
	}
	if err := s.db.WithContext(ctx).Create(file).Error; err != nil {
		return nil, fmt.Errorf("failed to register data file %q: %w", name, err)
	}
	s.logger.Debug("registered data file",
		zap.Uint("id", file.ID),
		zap.String("uuid", file.UUID),
		zap.String("name", name))
	return file, nil
}

// FindDataFile resolves a data file by numeric ID, then UUID, then name. A
// numeric ref that matches an ID never resolves to a file named like it. When
// several files share a name the most recently registered one is returned.
func (s *Store) FindDataFile(ctx context.Context, ref string) (*core.DataFile, error) {
	var file core.DataFile

	if id, err := strconv.ParseUint(ref, 10, 64); err == nil {
		err := s.db.WithContext(ctx).First(&file, "id = ?", id).Error
		if err == nil {
			return &file, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to find data file %s: %w", ref, err)
		}
	}

	err := s.db.WithContext(ctx).
		Where("uuid = ? OR name = ?", ref, ref).
		Order("id DESC").
		First(&file).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrDataFileNotFound, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find data file %s: %w", ref, err)
	}
	return &file, nil
}

// ListDataFiles returns every registered data file in registration order.
func (s *Store) ListDataFiles(ctx context.Context) ([]core.DataFile, error) {
	var files []core.DataFile
	if err := s.db.WithContext(ctx).Order("id").Find(&files).Error; err != nil {
		return nil, fmt.Errorf("failed to list data files: %w", err)
	}
	return files, nil
}

// SaveScans inserts a batch of entities in one transaction. Either every row
// is stored or none is. IDs are assigned on the passed entities.
func (s *Store) SaveScans(ctx context.Context, scans []*core.ScanMetadata) error {
	if len(scans) == 0 {
		return nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(scans, s.batchSize).Error
	})
	if err != nil {
		return fmt.Errorf("failed to save %d scans: %w", len(scans), err)
	}
	return nil
}

// ListScans returns the scans of a data file ordered by scan number.
func (s *Store) ListScans(ctx context.Context, dataFileID uint) ([]core.ScanMetadata, error) {
	var scans []core.ScanMetadata
	err := s.db.WithContext(ctx).
		Where("data_file_id = ?", dataFileID).
		Order("scan_number").
		Find(&scans).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	return scans, nil
}

// DeleteDataFile removes a data file and its entire record set.
func (s *Store) DeleteDataFile(ctx context.Context, dataFileID uint) error {
	var removed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("data_file_id = ?", dataFileID).Delete(&core.ScanMetadata{})
		if result.Error != nil {
			return result.Error
		}
		removed = result.RowsAffected

		result = tx.Delete(&core.DataFile{}, dataFileID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrDataFileNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete data file %d: %w", dataFileID, err)
	}

	s.logger.Info("deleted data file",
		zap.Uint("id", dataFileID),
		zap.Int64("scans", removed))
	return nil
}
