// internal/store/store.go

// Package store is the content database layer. It speaks both Postgres and
// MySQL, selected by the DSN scheme, and only ever issues partial updates:
// the pipelines touch the columns they resolved and nothing else.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"github.com/citypulse/eventharvest/internal/config"
)

// Store wraps the SQL connection pool.
type Store struct {
	db     *sql.DB
	driver string
}

// Open connects using cfg.DSN. postgres:// and postgresql:// DSNs use
// lib/pq, mysql:// DSNs are rewritten to the go-sql-driver format.
func Open(cfg config.StoreConfig) (*Store, error) {
	u, err := url.Parse(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	var driver, dsn string
	switch u.Scheme {
	case "postgres", "postgresql":
		driver, dsn = "postgres", cfg.DSN
	case "mysql":
		driver = "mysql"
		dsn, err = mysqlDSN(u)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported DSN scheme %q", u.Scheme)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime.Std())
	}

	return &Store{db: db, driver: driver}, nil
}

// mysqlDSN converts a mysql:// URL into the go-sql-driver form
// user:pass@tcp(host:port)/dbname?parseTime=true.
func mysqlDSN(u *url.URL) (string, error) {
	host := u.Host
	if u.Port() == "" {
		host += ":3306"
	}
	var cred string
	if u.User != nil {
		cred = u.User.Username()
		if pass, ok := u.User.Password(); ok {
			cred += ":" + pass
		}
		cred += "@"
	}
	dbName := strings.TrimPrefix(u.Path, "/")
	if dbName == "" {
		return "", fmt.Errorf("mysql DSN is missing a database name")
	}
	q := u.Query()
	q.Set("parseTime", "true")
	return fmt.Sprintf("%stcp(%s)/%s?%s", cred, host, dbName, q.Encode()), nil
}

// Ping verifies connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders to $1..$n for Postgres. Queries in this
// package are written in MySQL placeholder style.
func (s *Store) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Event is the subset of the events table the pipelines read and write.
type Event struct {
	ID          string
	Title       string
	Venue       string
	Category    string
	ImageURL    string
	Description string
	Enhanced    string
	SourceURL   string
	Date        *time.Time
}

const eventColumns = `id, title, COALESCE(venue, ''), COALESCE(category, ''),
	COALESCE(image_url, ''), COALESCE(description, ''), COALESCE(enhanced_description, ''),
	COALESCE(source_url, ''), date`

func scanEvent(rows *sql.Rows) (Event, error) {
	var ev Event
	var date sql.NullTime
	err := rows.Scan(&ev.ID, &ev.Title, &ev.Venue, &ev.Category,
		&ev.ImageURL, &ev.Description, &ev.Enhanced, &ev.SourceURL, &date)
	if err != nil {
		return Event{}, err
	}
	if date.Valid {
		t := date.Time
		ev.Date = &t
	}
	return ev, nil
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...interface{}) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// ListEventsForCrawl returns events that have a source URL to visit,
// oldest date first. eventID narrows the batch to one event when set.
func (s *Store) ListEventsForCrawl(ctx context.Context, eventID string, limit int) ([]Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events
		WHERE source_url IS NOT NULL AND source_url <> ''`
	args := []interface{}{}
	if eventID != "" {
		query += ` AND id = ?`
		args = append(args, eventID)
	}
	query += ` ORDER BY date ASC LIMIT ?`
	args = append(args, limit)
	return s.queryEvents(ctx, query, args...)
}

// ListFutureEvents returns upcoming events with a source URL, soonest first.
func (s *Store) ListFutureEvents(ctx context.Context, now time.Time, limit int) ([]Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events
		WHERE source_url IS NOT NULL AND source_url <> '' AND date >= ?
		ORDER BY date ASC LIMIT ?`
	return s.queryEvents(ctx, query, now, limit)
}

// UpdateEventSchedule writes the resolved start columns for one event.
func (s *Store) UpdateEventSchedule(ctx context.Context, id string, startLocal time.Time, timezone string, startUTC time.Time) error {
	query := `UPDATE events
		SET event_start_local = ?, event_timezone = ?, event_start_utc = ?, date = ?
		WHERE id = ?`
	res, err := s.db.ExecContext(ctx, s.rebind(query),
		startLocal.Format("2006-01-02T15:04:05"), timezone, startUTC, startLocal, id)
	if err != nil {
		return fmt.Errorf("updating schedule for event %s: %w", id, err)
	}
	return requireRow(res, id)
}

// UpdateEventSourceURL replaces one event's source URL.
func (s *Store) UpdateEventSourceURL(ctx context.Context, id, sourceURL string) error {
	query := `UPDATE events SET source_url = ? WHERE id = ?`
	res, err := s.db.ExecContext(ctx, s.rebind(query), sourceURL, id)
	if err != nil {
		return fmt.Errorf("updating source URL for event %s: %w", id, err)
	}
	return requireRow(res, id)
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		// Some drivers cannot report this; treat the update as applied.
		return nil
	}
	if n == 0 {
		return fmt.Errorf("event %s not found", id)
	}
	return nil
}
