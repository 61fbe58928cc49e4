package archive

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"

	"github.com/example/tricy-client/internal/models"
)

type PostgresArchive struct {
	db *sql.DB
}

func NewPostgresArchive(dsn string) (*PostgresArchive, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	// quick ping
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresArchive{db: db}, nil
}

func (p *PostgresArchive) SaveCompleted(ctx context.Context, b *models.Booking) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO completed_bookings(booking_id, user_id, driver_id, pickup_location, dropoff_location, fare, status, created_at)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (booking_id) DO UPDATE SET status = EXCLUDED.status, driver_id = EXCLUDED.driver_id`,
		b.BookingID, b.UserID, b.DriverID, b.PickupLocation, b.DropoffLocation, b.Fare, string(b.Status), b.CreatedAt)
	return err
}

// Ping is used by the diagnostics readiness probe.
func (p *PostgresArchive) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *PostgresArchive) Close() error { return p.db.Close() }
