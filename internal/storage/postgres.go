package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/thisdougb/gamehealth/internal/probe"
)

// resourceRow is the Postgres table layout of a probe.Resource.
type resourceRow struct {
	ID       string `gorm:"primaryKey"`
	OwnerID  string `gorm:"index:idx_health_resources_owner_module"`
	ModuleID string `gorm:"index:idx_health_resources_owner_module"`
	Data     string
}

func (resourceRow) TableName() string {
	return "health_resources"
}

// PostgresStore is a ResourceStore backed by Postgres through GORM.
type PostgresStore struct {
	db *gorm.DB
}

// NewPostgresStore connects to databaseURL, verifies the connection and
// ensures the resources table exists.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		PrepareStmt:    true,
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(4)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxIdleTime(15 * time.Minute)
	sqlDB.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := db.WithContext(ctx).AutoMigrate(&resourceRow{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("gorm sql db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

func (s *PostgresStore) QueryByOwnerAndModule(ctx context.Context, ownerID, moduleID string) ([]probe.Resource, error) {
	var rows []resourceRow
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND module_id = ?", ownerID, moduleID).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query postgres resources: %w", err)
	}

	resources := make([]probe.Resource, 0, len(rows))
	for _, row := range rows {
		r := probe.Resource{ID: row.ID, OwnerID: row.OwnerID, ModuleID: row.ModuleID}
		if row.Data != "" {
			_ = json.Unmarshal([]byte(row.Data), &r.Data)
		}
		resources = append(resources, r)
	}
	return resources, nil
}

// PutResource inserts or updates a resource.
func (s *PostgresStore) PutResource(ctx context.Context, r probe.Resource) error {
	row := resourceRow{ID: r.ID, OwnerID: r.OwnerID, ModuleID: r.ModuleID}
	if len(r.Data) > 0 {
		data, err := json.Marshal(r.Data)
		if err != nil {
			return fmt.Errorf("encode resource data: %w", err)
		}
		row.Data = string(data)
	}
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("save postgres resource: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
