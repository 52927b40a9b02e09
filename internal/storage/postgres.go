package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/example/ride-hailing/internal/models"
)

// queryTimeout bounds every statement so callers never block indefinitely.
const queryTimeout = 5 * time.Second

// PostgresStore persists rides in a single table. Guarded patches become
// conditional UPDATEs, so accept races are resolved by the database.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) Close() error { return p.db.Close() }

func (p *PostgresStore) Insert(ctx context.Context, r *models.Ride) error {
	if err := r.Validate(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	_, err := p.db.ExecContext(ctx, `INSERT INTO rides(
			id, requester_id, driver_id,
			pickup_lat, pickup_lng, pickup_address,
			dest_lat, dest_lng, dest_address,
			status, fare, distance, duration, created_at,
			driver_loc_lat, driver_loc_lng)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		r.ID, r.RequesterID, nullString(r.DriverID),
		r.Pickup.Lat, r.Pickup.Lng, r.Pickup.Address,
		r.Destination.Lat, r.Destination.Lng, r.Destination.Address,
		string(r.Status), r.Fare, r.Distance, r.Duration, r.CreatedAt,
		nullLat(r.DriverLocation), nullLng(r.DriverLocation))
	return err
}

const rideColumns = `id, requester_id, driver_id,
	pickup_lat, pickup_lng, pickup_address,
	dest_lat, dest_lng, dest_address,
	status, fare, distance, duration, created_at,
	driver_loc_lat, driver_loc_lng`

func (p *PostgresStore) Get(ctx context.Context, id string) (*models.Ride, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	row := p.db.QueryRowContext(ctx, `SELECT `+rideColumns+` FROM rides WHERE id=$1`, id)
	r, err := scanRide(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

func (p *PostgresStore) Patch(ctx context.Context, id string, patch Patch) error {
	set, where, args := buildPatch(patch, id)
	if len(set) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	q := fmt.Sprintf(`UPDATE rides SET %s WHERE %s`, strings.Join(set, ", "), strings.Join(where, " AND "))
	res, err := p.db.ExecContext(ctx, q, args...)
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
	// zero rows: tell a missing record apart from a failed guard
	var exists bool
	if err := p.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM rides WHERE id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrPrecondition
}

// buildPatch renders a Patch as SET/WHERE fragments with $n placeholders.
func buildPatch(p Patch, id string) (set, where []string, args []any) {
	n := 0
	arg := func(v any) string {
		n++
		args = append(args, v)
		return fmt.Sprintf("$%d", n)
	}
	if p.Status != nil {
		set = append(set, "status="+arg(string(*p.Status)))
	}
	if p.DriverID != nil {
		set = append(set, "driver_id="+arg(*p.DriverID))
	}
	if p.ClearDriver {
		set = append(set, "driver_id=NULL", "driver_loc_lat=NULL", "driver_loc_lng=NULL")
	}
	if p.DriverLocation != nil {
		set = append(set, "driver_loc_lat="+arg(p.DriverLocation.Lat))
		set = append(set, "driver_loc_lng="+arg(p.DriverLocation.Lng))
	}
	where = append(where, "id="+arg(id))
	if p.ExpectStatus != nil {
		where = append(where, "status="+arg(string(*p.ExpectStatus)))
	}
	if p.ExpectNoDriver {
		where = append(where, "driver_id IS NULL")
	}
	if p.ExpectDriverID != nil {
		where = append(where, "driver_id="+arg(*p.ExpectDriverID))
	}
	return set, where, args
}

func (p *PostgresStore) List(ctx context.Context, f Filter) ([]*models.Ride, error) {
	where := []string{"1=1"}
	args := []any{}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status=$%d", len(args)))
	}
	if f.RequesterID != "" {
		args = append(args, f.RequesterID)
		where = append(where, fmt.Sprintf("requester_id=$%d", len(args)))
	}
	if f.DriverID != "" {
		args = append(args, f.DriverID)
		where = append(where, fmt.Sprintf("driver_id=$%d", len(args)))
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	q := `SELECT ` + rideColumns + ` FROM rides WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY created_at DESC, id DESC`
	rows, err := p.db.QueryContext(ctx, q, args...)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRide(row rowScanner) (*models.Ride, error) {
	var (
		r        models.Ride
		driverID sql.NullString
		status   string
		locLat   sql.NullFloat64
		locLng   sql.NullFloat64
	)
	err := row.Scan(&r.ID, &r.RequesterID, &driverID,
		&r.Pickup.Lat, &r.Pickup.Lng, &r.Pickup.Address,
		&r.Destination.Lat, &r.Destination.Lng, &r.Destination.Address,
		&status, &r.Fare, &r.Distance, &r.Duration, &r.CreatedAt,
		&locLat, &locLng)
	if err != nil {
		return nil, err
	}
	r.Status = models.Status(status)
	r.DriverID = driverID.String
	if locLat.Valid && locLng.Valid {
		r.DriverLocation = &models.LatLng{Lat: locLat.Float64, Lng: locLng.Float64}
	}
	return &r, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullLat(l *models.LatLng) sql.NullFloat64 {
	if l == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: l.Lat, Valid: true}
}

func nullLng(l *models.LatLng) sql.NullFloat64 {
	if l == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: l.Lng, Valid: true}
}
