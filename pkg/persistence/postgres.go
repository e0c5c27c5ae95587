package persistence

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/shadowmesh/shadowmesh/pkg/addr"
)

// RoutingAuditLog appends every pkg/layer3.RoutingTable.Learn call to a
// Postgres table for offline inspection. It is read-only with respect
// to routing decisions: the RoutingTable's in-memory state remains
// authoritative per spec.md §5, this package only records history.
// Grounded on the teacher's pkg/persistence/postgres.go connection
// pooling and InitSchema pattern.
type RoutingAuditLog struct {
	db *sql.DB
}

// Config holds Postgres connection parameters.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// NewRoutingAuditLog opens a connection pool and ensures the audit
// table exists.
func NewRoutingAuditLog(cfg Config) (*RoutingAuditLog, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("persistence: open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("persistence: ping postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	log := &RoutingAuditLog{db: db}
	if err := log.initSchema(); err != nil {
		return nil, fmt.Errorf("persistence: init schema: %w", err)
	}
	return log, nil
}

func (l *RoutingAuditLog) initSchema() error {
	_, err := l.db.Exec(`
		CREATE TABLE IF NOT EXISTS route_audit (
			id          BIGSERIAL PRIMARY KEY,
			range_addr  TEXT NOT NULL,
			prefix_len  SMALLINT NOT NULL,
			peer        TEXT NOT NULL,
			learned_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	return err
}

// RecordLearn appends one row describing a RoutingTable.Learn call.
func (l *RoutingAuditLog) RecordLearn(rng addr.Range, peer string) error {
	_, err := l.db.Exec(
		`INSERT INTO route_audit (range_addr, prefix_len, peer) VALUES ($1, $2, $3)`,
		rng.Base.String(), rng.PrefixLen, peer,
	)
	if err != nil {
		return fmt.Errorf("persistence: record route learn: %w", err)
	}
	return nil
}

// RouteAuditRow is one recorded Learn call, as returned by History.
type RouteAuditRow struct {
	RangeAddr string
	PrefixLen uint8
	Peer      string
	LearnedAt time.Time
}

// History returns the most recent audit rows, newest first, bounded by
// limit.
func (l *RoutingAuditLog) History(limit int) ([]RouteAuditRow, error) {
	rows, err := l.db.Query(
		`SELECT range_addr, prefix_len, peer, learned_at FROM route_audit ORDER BY learned_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("persistence: query route audit: %w", err)
	}
	defer rows.Close()

	var out []RouteAuditRow
	for rows.Next() {
		var r RouteAuditRow
		if err := rows.Scan(&r.RangeAddr, &r.PrefixLen, &r.Peer, &r.LearnedAt); err != nil {
			return nil, fmt.Errorf("persistence: scan route audit row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close releases the connection pool.
func (l *RoutingAuditLog) Close() error {
	return l.db.Close()
}
