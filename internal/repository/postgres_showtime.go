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

const showtimeColumns = `
	id,
	movie_id,
	venue_id,
	start_time,
	standard_price,
	premium_price,
	vip_price,
	seat_rows,
	seats_per_row,
	premium_rows,
	vip_rows,
	seat_map,
	version,
	created_at`

type PostgresShowtimeRepository struct {
	db *pgxpool.Pool
}

func NewPostgresShowtimeRepository(db *pgxpool.Pool) *PostgresShowtimeRepository {
	return &PostgresShowtimeRepository{
		db: db,
	}
}

func scanShowtime(row pgx.Row) (*domain.Showtime, error) {
	var s domain.Showtime

	err := row.Scan(
		&s.ID,
		&s.MovieID,
		&s.VenueID,
		&s.StartTime,
		&s.Prices.Standard,
		&s.Prices.Premium,
		&s.Prices.VIP,
		&s.Layout.Rows,
		&s.Layout.SeatsPerRow,
		&s.Layout.PremiumRows,
		&s.Layout.VIPRows,
		&s.SeatMap,
		&s.Version,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if s.SeatMap == nil {
		s.SeatMap = domain.SeatMap{}
	}

	return &s, nil
}

func (p *PostgresShowtimeRepository) GetByID(ctx context.Context, id string) (*domain.Showtime, error) {
	query := `SELECT ` + showtimeColumns + ` FROM showtimes WHERE id = $1`

	showtime, err := scanShowtime(p.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	return showtime, nil
}

// CompareAndSwapSeatMap writes seatMap only if the row is still at version.
func (p *PostgresShowtimeRepository) CompareAndSwapSeatMap(
	ctx context.Context,
	id string,
	version int64,
	seatMap domain.SeatMap) error {

	query := `
		UPDATE showtimes
		SET seat_map = $1, version = version + 1
		WHERE id = $2 AND version = $3
	`

	tag, err := p.db.Exec(ctx, query, seatMap, id, version)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return p.missingOrConflict(ctx, id)
	}

	return nil
}

func (p *PostgresShowtimeRepository) missingOrConflict(ctx context.Context, id string) error {
	var exists bool

	err := p.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM showtimes WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return err
	}

	if !exists {
		return domain.ErrRecordNotFound
	}

	return domain.ErrEditConflict
}

func (p *PostgresShowtimeRepository) Create(ctx context.Context, showtime *domain.Showtime) error {
	query := `
		INSERT INTO showtimes (
			id,
			movie_id,
			venue_id,
			start_time,
			standard_price,
			premium_price,
			vip_price,
			seat_rows,
			seats_per_row,
			premium_rows,
			vip_rows
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING seat_map, version, created_at
	`

	err := p.db.QueryRow(
		ctx,
		query,
		showtime.ID,
		showtime.MovieID,
		showtime.VenueID,
		showtime.StartTime,
		showtime.Prices.Standard,
		showtime.Prices.Premium,
		showtime.Prices.VIP,
		showtime.Layout.Rows,
		showtime.Layout.SeatsPerRow,
		nonNil(showtime.Layout.PremiumRows),
		nonNil(showtime.Layout.VIPRows),
	).Scan(&showtime.SeatMap, &showtime.Version, &showtime.CreatedAt)

	return mapShowtimeWriteError(err)
}

// CreateBatch schedules every showtime or none of them.
func (p *PostgresShowtimeRepository) CreateBatch(ctx context.Context, showtimes []*domain.Showtime) error {
	now := time.Now().UTC()

	err := runInTx(ctx, p.db, func(tx pgx.Tx) error {
		rows := make([][]any, 0, len(showtimes))
		for _, s := range showtimes {
			rows = append(rows, []any{
				s.ID,
				s.MovieID,
				s.VenueID,
				s.StartTime,
				s.Prices.Standard,
				s.Prices.Premium,
				s.Prices.VIP,
				s.Layout.Rows,
				s.Layout.SeatsPerRow,
				nonNil(s.Layout.PremiumRows),
				nonNil(s.Layout.VIPRows),
				domain.SeatMap{},
				int64(1),
				now,
			})
		}

		_, err := tx.CopyFrom(
			ctx,
			pgx.Identifier{"showtimes"},
			[]string{
				"id",
				"movie_id",
				"venue_id",
				"start_time",
				"standard_price",
				"premium_price",
				"vip_price",
				"seat_rows",
				"seats_per_row",
				"premium_rows",
				"vip_rows",
				"seat_map",
				"version",
				"created_at",
			},
			pgx.CopyFromRows(rows),
		)

		return err
	})
	if err != nil {
		return mapShowtimeWriteError(err)
	}

	for _, s := range showtimes {
		s.SeatMap = domain.SeatMap{}
		s.Version = 1
		s.CreatedAt = now
	}

	return nil
}

func (p *PostgresShowtimeRepository) ListUpcomingByMovie(
	ctx context.Context,
	movieID string,
	now time.Time,
	pagination domain.Pagination) ([]*domain.Showtime, *domain.Metadata, error) {

	query := `
		SELECT COUNT(*) OVER(), ` + showtimeColumns + `
		FROM showtimes
		WHERE movie_id = $1 AND start_time > $2
		ORDER BY start_time, id
		LIMIT $3 OFFSET $4
	`

	rows, err := p.db.Query(ctx, query, movieID, now, pagination.Limit(), pagination.Offset())
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	showtimes := make([]*domain.Showtime, 0)
	totalRecords := 0

	for rows.Next() {
		var s domain.Showtime

		err := rows.Scan(
			&totalRecords,
			&s.ID,
			&s.MovieID,
			&s.VenueID,
			&s.StartTime,
			&s.Prices.Standard,
			&s.Prices.Premium,
			&s.Prices.VIP,
			&s.Layout.Rows,
			&s.Layout.SeatsPerRow,
			&s.Layout.PremiumRows,
			&s.Layout.VIPRows,
			&s.SeatMap,
			&s.Version,
			&s.CreatedAt,
		)
		if err != nil {
			return nil, nil, err
		}

		showtimes = append(showtimes, &s)
	}

	if err = rows.Err(); err != nil {
		return nil, nil, err
	}

	metadata := domain.NewMetadata(totalRecords, pagination.Page, pagination.PageSize)

	return showtimes, metadata, nil
}

func (p *PostgresShowtimeRepository) ListIDsWithHolds(ctx context.Context, startsAfter time.Time) ([]string, error) {
	query := `
		SELECT id
		FROM showtimes
		WHERE start_time > $1 AND seat_map <> '{}'::jsonb
		ORDER BY start_time
	`

	rows, err := p.db.Query(ctx, query, startsAfter)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (p *PostgresShowtimeRepository) Delete(ctx context.Context, id string) error {
	tag, err := p.db.Exec(ctx, `DELETE FROM showtimes WHERE id = $1`, id)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrRecordNotFound
	}

	return nil
}

func (p *PostgresShowtimeRepository) DeleteStartedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := p.db.Exec(ctx, `DELETE FROM showtimes WHERE start_time < $1`, cutoff)
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}

func mapShowtimeWriteError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return domain.ErrShowtimeConflict
	}

	return err
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}

	return s
}

func runInTx(ctx context.Context, db *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	var txOptions pgx.TxOptions

	tx, err := db.BeginTx(ctx, txOptions)
	if err != nil {
		return err
	}

	err = fn(tx)
	if err == nil {
		return tx.Commit(ctx)
	}

	rollbackErr := tx.Rollback(ctx)
	if rollbackErr != nil {
		return errors.Join(err, rollbackErr)
	}

	return err
}
