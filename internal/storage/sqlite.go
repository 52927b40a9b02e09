package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/ride-hailing/internal/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS rides (
	id             TEXT PRIMARY KEY,
	requester_id   TEXT NOT NULL,
	driver_id      TEXT,
	pickup_lat     REAL NOT NULL,
	pickup_lng     REAL NOT NULL,
	pickup_address TEXT NOT NULL,
	dest_lat       REAL NOT NULL,
	dest_lng       REAL NOT NULL,
	dest_address   TEXT NOT NULL,
	status         TEXT NOT NULL,
	fare           REAL NOT NULL,
	distance       REAL NOT NULL,
	duration       REAL NOT NULL,
	created_at     TIMESTAMP NOT NULL,
	driver_loc_lat REAL,
	driver_loc_lng REAL
);
CREATE INDEX IF NOT EXISTS rides_status_idx ON rides(status);
CREATE INDEX IF NOT EXISTS rides_requester_idx ON rides(requester_id);
CREATE INDEX IF NOT EXISTS rides_driver_idx ON rides(driver_id);
`

// SQLiteStore is a file-backed store for single-node runs without Postgres.
// WAL mode allows readers during writes; a single writer connection avoids
// SQLITE_BUSY under concurrent accepts.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Insert(ctx context.Context, r *models.Ride) error {
	if err := r.Validate(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	_, err := s.db.ExecContext(ctx, `INSERT INTO rides(
			id, requester_id, driver_id,
			pickup_lat, pickup_lng, pickup_address,
			dest_lat, dest_lng, dest_address,
			status, fare, distance, duration, created_at,
			driver_loc_lat, driver_loc_lng)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		r.ID, r.RequesterID, nullString(r.DriverID),
		r.Pickup.Lat, r.Pickup.Lng, r.Pickup.Address,
		r.Destination.Lat, r.Destination.Lng, r.Destination.Address,
		string(r.Status), r.Fare, r.Distance, r.Duration, r.CreatedAt,
		nullLat(r.DriverLocation), nullLng(r.DriverLocation))
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*models.Ride, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	row := s.db.QueryRowContext(ctx, `SELECT `+rideColumns+` FROM rides WHERE id=?`, id)
	r, err := scanRide(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

func (s *SQLiteStore) Patch(ctx context.Context, id string, p Patch) error {
	// bind order is textual: SET fragments first, then WHERE
	var (
		set   []string
		where []string
		args  []any
	)
	if p.Status != nil {
		set = append(set, "status=?")
		args = append(args, string(*p.Status))
	}
	if p.DriverID != nil {
		set = append(set, "driver_id=?")
		args = append(args, *p.DriverID)
	}
	if p.ClearDriver {
		set = append(set, "driver_id=NULL", "driver_loc_lat=NULL", "driver_loc_lng=NULL")
	}
	if p.DriverLocation != nil {
		set = append(set, "driver_loc_lat=?", "driver_loc_lng=?")
		args = append(args, p.DriverLocation.Lat, p.DriverLocation.Lng)
	}
	if len(set) == 0 {
		return nil
	}
	where = append(where, "id=?")
	args = append(args, id)
	if p.ExpectStatus != nil {
		where = append(where, "status=?")
		args = append(args, string(*p.ExpectStatus))
	}
	if p.ExpectNoDriver {
		where = append(where, "driver_id IS NULL")
	}
	if p.ExpectDriverID != nil {
		where = append(where, "driver_id=?")
		args = append(args, *p.ExpectDriverID)
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	q := `UPDATE rides SET ` + strings.Join(set, ", ") + ` WHERE ` + strings.Join(where, " AND ")
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM rides WHERE id=?)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrPrecondition
}

func (s *SQLiteStore) List(ctx context.Context, f Filter) ([]*models.Ride, error) {
	where := []string{"1=1"}
	args := []any{}
	if f.Status != "" {
		where = append(where, "status=?")
		args = append(args, string(f.Status))
	}
	if f.RequesterID != "" {
		where = append(where, "requester_id=?")
		args = append(args, f.RequesterID)
	}
	if f.DriverID != "" {
		where = append(where, "driver_id=?")
		args = append(args, f.DriverID)
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	q := `SELECT ` + rideColumns + ` FROM rides WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY created_at DESC, id DESC`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*models.Ride, 0)
	for rows.Next() {
		r, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
