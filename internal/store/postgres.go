// Package store reads admitted runs from, and writes per-run status back
// to, a Postgres-backed catalog table.
package store

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-logr/logr"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// defaultCallTimeout bounds every query against the catalog database: a
// wedged connection must raise into the reconciliation loop's guard
// machinery instead of stalling the tick.
const defaultCallTimeout = 10 * time.Second

// AdmittedRun is one row the catalog reports as not yet acknowledged by the
// controller. RunData carries the admission-time context as a flat string
// map; Store.ListAdmitted does not interpret it, only Admission does.
type AdmittedRun struct {
	RunID   string
	RunData map[string]string
}

// Store is the narrow persistence contract the reconciliation loop needs.
// Implementations must make UpdateStatus idempotent: writing the same
// provenance twice is not an error.
type Store interface {
	ListAdmitted(ctx context.Context) ([]AdmittedRun, error)
	UpdateStatus(ctx context.Context, runID, provenance string) error
}

// catalogRun is the gorm model backing the admitted-run catalog table. A
// real deployment's Catalog/State Store almost certainly owns a richer
// schema; this table is the narrow slice of it the supervisor reads and
// writes.
type catalogRun struct {
	RunID        string `gorm:"column:run_id;primaryKey"`
	DownloadURL  string `gorm:"column:downloadurl"`
	GridName     string `gorm:"column:adcirc_gridname"`
	InstanceName string `gorm:"column:instancename"`
	Acknowledged bool   `gorm:"column:acknowledged"`
	Status       string `gorm:"column:status"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (catalogRun) TableName() string { return "supervisor_catalog_runs" }

// PostgresStore is a Store backed by gorm/postgres. Every query is bounded
// by Timeout, so a wedged connection surfaces as an error instead of
// blocking the tick.
type PostgresStore struct {
	db      *gorm.DB
	log     logr.Logger
	Timeout time.Duration
}

func (s *PostgresStore) timeout() time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	return defaultCallTimeout
}

func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// NewPostgresStore opens the catalog database connection using the
// CATALOG_DB_* environment variables, and auto-migrates the narrow
// supervisor-owned table.
func NewPostgresStore(baseLog logr.Logger) (*PostgresStore, error) {
	storeLog := baseLog.WithName("store")

	host := getEnv("CATALOG_DB_HOST", "localhost")
	port := getEnv("CATALOG_DB_PORT", "5432")
	user := getEnv("CATALOG_DB_USER", "postgres")
	password := getEnv("CATALOG_DB_PASSWORD", "")
	name := getEnv("CATALOG_DB_NAME", "apsviz_catalog")

	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		user, password, host, port, name,
	)

	// IgnoreRecordNotFoundError: ListAdmitted polls on every tick; a find
	// with no rows is the common case, not a logging event.
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	storeLog.Info("connecting to catalog database", "host", host, "name", name)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to catalog database: %w", err)
	}

	if err := db.AutoMigrate(&catalogRun{}); err != nil {
		return nil, fmt.Errorf("migrating catalog table: %w", err)
	}

	return &PostgresStore{db: db, log: storeLog, Timeout: defaultCallTimeout}, nil
}

// ListAdmitted returns every catalog row not yet acknowledged by the
// controller. A row is acknowledged as soon as the admission step writes
// its initial provenance, so a row is never returned twice across ticks.
func (s *PostgresStore) ListAdmitted(ctx context.Context) ([]AdmittedRun, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()

	var rows []catalogRun
	if err := s.db.WithContext(ctx).
		Where("acknowledged = ?", false).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing admitted runs: %w", err)
	}

	out := make([]AdmittedRun, 0, len(rows))
	for _, r := range rows {
		out = append(out, AdmittedRun{
			RunID: r.RunID,
			RunData: map[string]string{
				"downloadurl":     r.DownloadURL,
				"adcirc.gridname": r.GridName,
				"instancename":    r.InstanceName,
			},
		})
	}
	return out, nil
}

// UpdateStatus overwrites the run's status column and marks it
// acknowledged, so the next ListAdmitted no longer returns it.
func (s *PostgresStore) UpdateStatus(ctx context.Context, runID, provenance string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()

	err := s.db.WithContext(ctx).
		Model(&catalogRun{}).
		Where("run_id = ?", runID).
		Updates(map[string]interface{}{
			"status":       provenance,
			"acknowledged": true,
		}).Error
	if err != nil {
		return fmt.Errorf("updating status for run %s: %w", runID, err)
	}
	return nil
}
