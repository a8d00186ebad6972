package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/saurabh97858/myshow-sub000/internal/domain"
)

const bookingColumns = `
	id,
	user_id,
	showtime_id,
	seats,
	total_price,
	email,
	status,
	payment_reference,
	created_at,
	updated_at`

type PostgresBookingRepository struct {
	db *pgxpool.Pool
}

func NewPostgresBookingRepository(db *pgxpool.Pool) *PostgresBookingRepository {
	return &PostgresBookingRepository{
		db: db,
	}
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking

	err := row.Scan(
		&b.ID,
		&b.UserID,
		&b.ShowtimeID,
		&b.Seats,
		&b.TotalPrice,
		&b.Email,
		&b.Status,
		&b.PaymentReference,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &b, nil
}

func (p *PostgresBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	query := `
		INSERT INTO bookings (
			id,
			user_id,
			showtime_id,
			seats,
			total_price,
			email,
			status,
			payment_reference,
			created_at,
			updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := p.db.Exec(
		ctx,
		query,
		booking.ID,
		booking.UserID,
		booking.ShowtimeID,
		booking.Seats,
		booking.TotalPrice,
		booking.Email,
		booking.Status,
		booking.PaymentReference,
		booking.CreatedAt,
		booking.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return domain.ErrShowtimeNotFound
		}

		return err
	}

	return nil
}

func (p *PostgresBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(p.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	return booking, nil
}

func (p *PostgresBookingRepository) ListByUser(
	ctx context.Context,
	userID string,
	pagination domain.Pagination) ([]*domain.Booking, *domain.Metadata, error) {

	query := `
		SELECT COUNT(*) OVER(), ` + bookingColumns + `
		FROM bookings
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := p.db.Query(ctx, query, userID, pagination.Limit(), pagination.Offset())
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	bookings := make([]*domain.Booking, 0)
	totalRecords := 0

	for rows.Next() {
		var b domain.Booking

		err := rows.Scan(
			&totalRecords,
			&b.ID,
			&b.UserID,
			&b.ShowtimeID,
			&b.Seats,
			&b.TotalPrice,
			&b.Email,
			&b.Status,
			&b.PaymentReference,
			&b.CreatedAt,
			&b.UpdatedAt,
		)
		if err != nil {
			return nil, nil, err
		}

		bookings = append(bookings, &b)
	}

	if err = rows.Err(); err != nil {
		return nil, nil, err
	}

	metadata := domain.NewMetadata(totalRecords, pagination.Page, pagination.PageSize)

	return bookings, metadata, nil
}

func (p *PostgresBookingRepository) UpdateStatus(
	ctx context.Context,
	booking *domain.Booking,
	from domain.BookingStatus) error {

	query := `
		UPDATE bookings
		SET status = $1, payment_reference = $2, updated_at = $3
		WHERE id = $4 AND status = $5
	`

	tag, err := p.db.Exec(
		ctx,
		query,
		booking.Status,
		booking.PaymentReference,
		booking.UpdatedAt,
		booking.ID,
		from,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool

	err = p.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE id = $1)`, booking.ID).Scan(&exists)
	if err != nil {
		return err
	}

	if !exists {
		return domain.ErrRecordNotFound
	}

	return domain.ErrEditConflict
}

func (p *PostgresBookingRepository) ListPendingCreatedBefore(
	ctx context.Context,
	before time.Time,
	limit int) ([]*domain.Booking, error) {

	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = 'pending' AND created_at < $1
		ORDER BY created_at
		LIMIT $2
	`

	rows, err := p.db.Query(ctx, query, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]*domain.Booking, 0)

	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}

		bookings = append(bookings, booking)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return bookings, nil
}
