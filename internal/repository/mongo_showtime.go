package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/saurabh97858/myshow-sub000/internal/domain"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	showtimesCollection = "showtimes"
	bookingsCollection  = "bookings"
)

type mongoPrices struct {
	Standard primitive.Decimal128 `bson:"standard"`
	Premium  primitive.Decimal128 `bson:"premium"`
	VIP      primitive.Decimal128 `bson:"vip"`
}

type mongoLayout struct {
	Rows        int      `bson:"rows"`
	SeatsPerRow int      `bson:"seats_per_row"`
	PremiumRows []string `bson:"premium_rows"`
	VIPRows     []string `bson:"vip_rows"`
}

type mongoShowtime struct {
	ID        string         `bson:"_id"`
	MovieID   string         `bson:"movie_id"`
	VenueID   string         `bson:"venue_id"`
	StartTime time.Time      `bson:"start_time"`
	Prices    mongoPrices    `bson:"prices"`
	Layout    mongoLayout    `bson:"layout"`
	SeatMap   domain.SeatMap `bson:"seat_map"`
	HeldSeats int            `bson:"held_seats"`
	Version   int64          `bson:"version"`
	CreatedAt time.Time      `bson:"created_at"`
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	return primitive.ParseDecimal128(d.String())
}

func fromDecimal128(d primitive.Decimal128) (decimal.Decimal, error) {
	return decimal.NewFromString(d.String())
}

func toMongoShowtime(s *domain.Showtime) (*mongoShowtime, error) {
	var (
		prices mongoPrices
		err    error
	)

	if prices.Standard, err = toDecimal128(s.Prices.Standard); err != nil {
		return nil, err
	}
	if prices.Premium, err = toDecimal128(s.Prices.Premium); err != nil {
		return nil, err
	}
	if prices.VIP, err = toDecimal128(s.Prices.VIP); err != nil {
		return nil, err
	}

	return &mongoShowtime{
		ID:        s.ID,
		MovieID:   s.MovieID,
		VenueID:   s.VenueID,
		StartTime: s.StartTime.UTC(),
		Prices:    prices,
		Layout: mongoLayout{
			Rows:        s.Layout.Rows,
			SeatsPerRow: s.Layout.SeatsPerRow,
			PremiumRows: nonNil(s.Layout.PremiumRows),
			VIPRows:     nonNil(s.Layout.VIPRows),
		},
		SeatMap:   s.SeatMap.Clone(),
		HeldSeats: len(s.SeatMap),
		Version:   s.Version,
		CreatedAt: s.CreatedAt,
	}, nil
}

func (m *mongoShowtime) toDomain() (*domain.Showtime, error) {
	var (
		prices domain.PriceTiers
		err    error
	)

	if prices.Standard, err = fromDecimal128(m.Prices.Standard); err != nil {
		return nil, err
	}
	if prices.Premium, err = fromDecimal128(m.Prices.Premium); err != nil {
		return nil, err
	}
	if prices.VIP, err = fromDecimal128(m.Prices.VIP); err != nil {
		return nil, err
	}

	return &domain.Showtime{
		ID:        m.ID,
		MovieID:   m.MovieID,
		VenueID:   m.VenueID,
		StartTime: m.StartTime,
		Prices:    prices,
		Layout: domain.SeatLayout{
			Rows:        m.Layout.Rows,
			SeatsPerRow: m.Layout.SeatsPerRow,
			PremiumRows: m.Layout.PremiumRows,
			VIPRows:     m.Layout.VIPRows,
		},
		SeatMap:   m.SeatMap.Clone(),
		Version:   m.Version,
		CreatedAt: m.CreatedAt,
	}, nil
}

type MongoShowtimeRepository struct {
	coll *mongo.Collection
}

func NewMongoShowtimeRepository(db *mongo.Database) *MongoShowtimeRepository {
	return &MongoShowtimeRepository{
		coll: db.Collection(showtimesCollection),
	}
}

// EnsureMongoIndexes creates the indexes both Mongo repositories rely on.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(showtimesCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "venue_id", Value: 1}, {Key: "start_time", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "movie_id", Value: 1}, {Key: "start_time", Value: 1}},
		},
	})
	if err != nil {
		return fmt.Errorf("create showtime indexes: %w", err)
	}

	_, err = db.Collection(bookingsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}},
		},
	})
	if err != nil {
		return fmt.Errorf("create booking indexes: %w", err)
	}

	return nil
}

func (r *MongoShowtimeRepository) GetByID(ctx context.Context, id string) (*domain.Showtime, error) {
	var doc mongoShowtime

	err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	return doc.toDomain()
}

// CompareAndSwapSeatMap matches on both id and version, so a concurrent
// writer that bumped the version makes the update match nothing.
func (r *MongoShowtimeRepository) CompareAndSwapSeatMap(
	ctx context.Context,
	id string,
	version int64,
	seatMap domain.SeatMap) error {

	filter := bson.D{
		{Key: "_id", Value: id},
		{Key: "version", Value: version},
	}
	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "seat_map", Value: seatMap.Clone()},
			{Key: "held_seats", Value: len(seatMap)},
		}},
		{Key: "$inc", Value: bson.D{{Key: "version", Value: 1}}},
	}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}

	if res.MatchedCount > 0 {
		return nil
	}

	n, err := r.coll.CountDocuments(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return err
	}

	if n == 0 {
		return domain.ErrRecordNotFound
	}

	return domain.ErrEditConflict
}

func (r *MongoShowtimeRepository) Create(ctx context.Context, showtime *domain.Showtime) error {
	return r.CreateBatch(ctx, []*domain.Showtime{showtime})
}

// CreateBatch inserts every showtime or, on failure, removes the ones that made
// it in before returning the error.
func (r *MongoShowtimeRepository) CreateBatch(ctx context.Context, showtimes []*domain.Showtime) error {
	now := time.Now().UTC().Truncate(time.Millisecond)

	docs := make([]interface{}, 0, len(showtimes))
	ids := make([]string, 0, len(showtimes))

	for _, s := range showtimes {
		doc, err := toMongoShowtime(&domain.Showtime{
			ID:        s.ID,
			MovieID:   s.MovieID,
			VenueID:   s.VenueID,
			StartTime: s.StartTime,
			Prices:    s.Prices,
			Layout:    s.Layout,
			SeatMap:   domain.SeatMap{},
			Version:   1,
			CreatedAt: now,
		})
		if err != nil {
			return err
		}

		docs = append(docs, doc)
		ids = append(ids, s.ID)
	}

	_, err := r.coll.InsertMany(ctx, docs)
	if err != nil {
		_, cleanupErr := r.coll.DeleteMany(ctx, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}})

		if mongo.IsDuplicateKeyError(err) {
			err = domain.ErrShowtimeConflict
		}

		return errors.Join(err, cleanupErr)
	}

	for _, s := range showtimes {
		s.SeatMap = domain.SeatMap{}
		s.Version = 1
		s.CreatedAt = now
	}

	return nil
}

func (r *MongoShowtimeRepository) ListUpcomingByMovie(
	ctx context.Context,
	movieID string,
	now time.Time,
	pagination domain.Pagination) ([]*domain.Showtime, *domain.Metadata, error) {

	filter := bson.D{
		{Key: "movie_id", Value: movieID},
		{Key: "start_time", Value: bson.D{{Key: "$gt", Value: now}}},
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, nil, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "start_time", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(pagination.Offset())).
		SetLimit(int64(pagination.Limit()))

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, nil, err
	}

	var docs []mongoShowtime
	if err := cur.All(ctx, &docs); err != nil {
		return nil, nil, err
	}

	showtimes := make([]*domain.Showtime, 0, len(docs))
	for i := range docs {
		s, err := docs[i].toDomain()
		if err != nil {
			return nil, nil, err
		}

		showtimes = append(showtimes, s)
	}

	return showtimes, domain.NewMetadata(int(total), pagination.Page, pagination.PageSize), nil
}

func (r *MongoShowtimeRepository) ListIDsWithHolds(ctx context.Context, startsAfter time.Time) ([]string, error) {
	filter := bson.D{
		{Key: "start_time", Value: bson.D{{Key: "$gt", Value: startsAfter}}},
		{Key: "held_seats", Value: bson.D{{Key: "$gt", Value: 0}}},
	}

	opts := options.Find().
		SetProjection(bson.D{{Key: "_id", Value: 1}}).
		SetSort(bson.D{{Key: "start_time", Value: 1}})

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	var docs []struct {
		ID string `bson:"_id"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}

	return ids, nil
}

func (r *MongoShowtimeRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return err
	}

	if res.DeletedCount == 0 {
		return domain.ErrRecordNotFound
	}

	return nil
}

func (r *MongoShowtimeRepository) DeleteStartedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.D{{Key: "start_time", Value: bson.D{{Key: "$lt", Value: cutoff}}}})
	if err != nil {
		return 0, err
	}

	return res.DeletedCount, nil
}
