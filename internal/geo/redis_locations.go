package geo

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/ride-hailing/internal/models"
)

// DriverLocations keeps last-known driver positions in a Redis GEO set with
// a metadata hash per driver. It is a side index for ops tooling and the
// location consumer; ride state itself lives in the RideStore.
type DriverLocations struct {
	client *redis.Client
	key    string
}

func NewDriverLocations(addr, password, key string) *DriverLocations {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &DriverLocations{client: c, key: key}
}

func (d *DriverLocations) Upsert(ctx context.Context, driverID string, loc models.LatLng) error {
	if _, err := d.client.GeoAdd(ctx, d.key, &redis.GeoLocation{
		Longitude: loc.Lng,
		Latitude:  loc.Lat,
		Name:      driverID,
	}).Result(); err != nil {
		return err
	}
	return d.client.HSet(ctx, metaKey(driverID), map[string]interface{}{
		"updated": time.Now().Format(time.RFC3339),
	}).Err()
}

// Last returns the most recent position for a driver, if one is known.
func (d *DriverLocations) Last(ctx context.Context, driverID string) (models.LatLng, bool, error) {
	pos, err := d.client.GeoPos(ctx, d.key, driverID).Result()
	if err != nil {
		return models.LatLng{}, false, err
	}
	if len(pos) == 0 || pos[0] == nil {
		return models.LatLng{}, false, nil
	}
	return models.LatLng{Lat: pos[0].Latitude, Lng: pos[0].Longitude}, true, nil
}

func (d *DriverLocations) Ping(ctx context.Context) error {
	return d.client.Ping(ctx).Err()
}

func (d *DriverLocations) Close() error { return d.client.Close() }

func metaKey(id string) string { return "driver:meta:" + id }
