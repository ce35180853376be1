package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"github.com/rileyhilliard/sentinel/internal/errors"
	"github.com/rileyhilliard/sentinel/internal/monitor"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore keeps one row per host with the container list and history
// as JSON columns.
type SQLiteStore struct {
	db   *sqlx.DB
	path string
}

// NewSQLiteStore opens the database at dsn and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite3", dsn+"?_busy_timeout=5000")
	if err != nil {
		return nil, storeError(err, "open", dsn)
	}
	// One writer; also keeps ":memory:" on a single database.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, storeError(err, "open", dsn)
	}

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, errors.WrapWithCode(err, errors.ErrStore,
			"Failed to migrate host database",
			"Move the database aside and restart to create a fresh one.")
	}

	return &SQLiteStore{db: db, path: dsn}, nil
}

func runMigrations(db *sql.DB) error {
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type hostRow struct {
	ID            string   `db:"id"`
	Name          string   `db:"name"`
	Address       string   `db:"ip_address"`
	SSHPort       int      `db:"ssh_port"`
	Status        string   `db:"status"`
	CreatedAt     int64    `db:"created_at"`
	Containers    string   `db:"containers"`
	CPUUsage      *float64 `db:"cpu_usage"`
	MemoryUsage   *float64 `db:"memory_usage"`
	MemoryUsedGB  *float64 `db:"memory_used_gb"`
	MemoryTotalGB *float64 `db:"memory_total_gb"`
	DiskUsage     *float64 `db:"disk_usage"`
	DiskUsedGB    *float64 `db:"disk_used_gb"`
	DiskTotalGB   *float64 `db:"disk_total_gb"`
	History       string   `db:"history"`
	LastPolled    *int64   `db:"last_polled"`
	LastError     string   `db:"last_error"`
}

func toRow(h monitor.Host) (hostRow, error) {
	containers := h.Containers
	if containers == nil {
		containers = []monitor.Container{}
	}
	history := h.History
	if history == nil {
		history = []monitor.HostMetric{}
	}

	cj, err := json.Marshal(containers)
	if err != nil {
		return hostRow{}, fmt.Errorf("encode containers: %w", err)
	}
	hj, err := json.Marshal(history)
	if err != nil {
		return hostRow{}, fmt.Errorf("encode history: %w", err)
	}

	row := hostRow{
		ID:            h.ID,
		Name:          h.Name,
		Address:       h.Address,
		SSHPort:       h.SSHPort,
		Status:        string(h.Status),
		CreatedAt:     h.CreatedAt.UnixMilli(),
		Containers:    string(cj),
		CPUUsage:      h.CPUUsage,
		MemoryUsage:   h.MemoryUsage,
		MemoryUsedGB:  h.MemoryUsedGB,
		MemoryTotalGB: h.MemoryTotalGB,
		DiskUsage:     h.DiskUsage,
		DiskUsedGB:    h.DiskUsedGB,
		DiskTotalGB:   h.DiskTotalGB,
		History:       string(hj),
		LastError:     h.LastError,
	}
	if !h.LastPolled.IsZero() {
		ms := h.LastPolled.UnixMilli()
		row.LastPolled = &ms
	}
	return row, nil
}

func (r hostRow) toHost() (monitor.Host, error) {
	h := monitor.Host{
		ID:            r.ID,
		Name:          r.Name,
		Address:       r.Address,
		SSHPort:       r.SSHPort,
		Status:        monitor.HostStatus(r.Status),
		CreatedAt:     time.UnixMilli(r.CreatedAt).UTC(),
		CPUUsage:      r.CPUUsage,
		MemoryUsage:   r.MemoryUsage,
		MemoryUsedGB:  r.MemoryUsedGB,
		MemoryTotalGB: r.MemoryTotalGB,
		DiskUsage:     r.DiskUsage,
		DiskUsedGB:    r.DiskUsedGB,
		DiskTotalGB:   r.DiskTotalGB,
		LastError:     r.LastError,
		Containers:    []monitor.Container{},
	}
	if r.LastPolled != nil {
		h.LastPolled = time.UnixMilli(*r.LastPolled).UTC()
	}
	if r.Containers != "" {
		if err := json.Unmarshal([]byte(r.Containers), &h.Containers); err != nil {
			return monitor.Host{}, fmt.Errorf("decode containers for %s: %w", r.ID, err)
		}
	}
	if r.History != "" {
		if err := json.Unmarshal([]byte(r.History), &h.History); err != nil {
			return monitor.Host{}, fmt.Errorf("decode history for %s: %w", r.ID, err)
		}
	}
	return h, nil
}

// LoadHosts returns every host, oldest first.
func (s *SQLiteStore) LoadHosts(ctx context.Context) ([]monitor.Host, error) {
	var rows []hostRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM hosts ORDER BY created_at, id`); err != nil {
		return nil, storeError(err, "load hosts", s.path)
	}

	hosts := make([]monitor.Host, 0, len(rows))
	for _, r := range rows {
		h, err := r.toHost()
		if err != nil {
			return nil, storeError(err, "load hosts", s.path)
		}
		hosts = append(hosts, h)
	}
	return hosts, nil
}

// SaveHost inserts a new host.
func (s *SQLiteStore) SaveHost(ctx context.Context, host monitor.Host) error {
	row, err := toRow(host)
	if err != nil {
		return storeError(err, "save host", s.path)
	}

	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO hosts (
			id, name, ip_address, ssh_port, status, created_at, containers,
			cpu_usage, memory_usage, memory_used_gb, memory_total_gb,
			disk_usage, disk_used_gb, disk_total_gb, history, last_polled, last_error
		) VALUES (
			:id, :name, :ip_address, :ssh_port, :status, :created_at, :containers,
			:cpu_usage, :memory_usage, :memory_used_gb, :memory_total_gb,
			:disk_usage, :disk_used_gb, :disk_total_gb, :history, :last_polled, :last_error
		)`, row)
	if err != nil {
		if isUniqueViolation(err) {
			return duplicate("save", host.ID)
		}
		return storeError(err, "save host", s.path)
	}
	return nil
}

// UpdateHost rewrites every column of an existing host in one statement.
func (s *SQLiteStore) UpdateHost(ctx context.Context, host monitor.Host) error {
	row, err := toRow(host)
	if err != nil {
		return storeError(err, "update host", s.path)
	}

	result, err := s.db.NamedExecContext(ctx, `
		UPDATE hosts SET
			name = :name, ip_address = :ip_address, ssh_port = :ssh_port,
			status = :status, created_at = :created_at, containers = :containers,
			cpu_usage = :cpu_usage, memory_usage = :memory_usage,
			memory_used_gb = :memory_used_gb, memory_total_gb = :memory_total_gb,
			disk_usage = :disk_usage, disk_used_gb = :disk_used_gb, disk_total_gb = :disk_total_gb,
			history = :history, last_polled = :last_polled, last_error = :last_error
		WHERE id = :id`, row)
	if err != nil {
		return storeError(err, "update host", s.path)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return storeError(err, "update host", s.path)
	}
	if rows == 0 {
		return notFound("update", host.ID)
	}
	return nil
}

// DeleteHost removes the host with id.
func (s *SQLiteStore) DeleteHost(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM hosts WHERE id = ?`, id)
	if err != nil {
		return storeError(err, "delete host", s.path)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return storeError(err, "delete host", s.path)
	}
	if rows == 0 {
		return notFound("delete", id)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if stderrors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
