package repository

import (
	"context"
	"errors"
	"time"

	"github.com/saurabh97858/myshow-sub000/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoBooking struct {
	ID               string               `bson:"_id"`
	UserID           string               `bson:"user_id"`
	ShowtimeID       string               `bson:"showtime_id"`
	Seats            []string             `bson:"seats"`
	TotalPrice       primitive.Decimal128 `bson:"total_price"`
	Email            string               `bson:"email,omitempty"`
	Status           string               `bson:"status"`
	PaymentReference string               `bson:"payment_reference,omitempty"`
	CreatedAt        time.Time            `bson:"created_at"`
	UpdatedAt        time.Time            `bson:"updated_at"`
}

func (m *mongoBooking) toDomain() (*domain.Booking, error) {
	total, err := fromDecimal128(m.TotalPrice)
	if err != nil {
		return nil, err
	}

	return &domain.Booking{
		ID:               m.ID,
		UserID:           m.UserID,
		ShowtimeID:       m.ShowtimeID,
		Seats:            m.Seats,
		TotalPrice:       total,
		Email:            m.Email,
		Status:           domain.BookingStatus(m.Status),
		PaymentReference: m.PaymentReference,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}, nil
}

type MongoBookingRepository struct {
	coll      *mongo.Collection
	showtimes *mongo.Collection
}

func NewMongoBookingRepository(db *mongo.Database) *MongoBookingRepository {
	return &MongoBookingRepository{
		coll:      db.Collection(bookingsCollection),
		showtimes: db.Collection(showtimesCollection),
	}
}

func (r *MongoBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	n, err := r.showtimes.CountDocuments(ctx, bson.D{{Key: "_id", Value: booking.ShowtimeID}})
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrShowtimeNotFound
	}

	total, err := toDecimal128(booking.TotalPrice)
	if err != nil {
		return err
	}

	_, err = r.coll.InsertOne(ctx, mongoBooking{
		ID:               booking.ID,
		UserID:           booking.UserID,
		ShowtimeID:       booking.ShowtimeID,
		Seats:            nonNil(booking.Seats),
		TotalPrice:       total,
		Email:            booking.Email,
		Status:           string(booking.Status),
		PaymentReference: booking.PaymentReference,
		CreatedAt:        booking.CreatedAt,
		UpdatedAt:        booking.UpdatedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrEditConflict
	}

	return err
}

func (r *MongoBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	var doc mongoBooking

	err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	return doc.toDomain()
}

func (r *MongoBookingRepository) ListByUser(
	ctx context.Context,
	userID string,
	pagination domain.Pagination) ([]*domain.Booking, *domain.Metadata, error) {

	filter := bson.D{{Key: "user_id", Value: userID}}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, nil, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(pagination.Offset())).
		SetLimit(int64(pagination.Limit()))

	bookings, err := r.find(ctx, filter, opts)
	if err != nil {
		return nil, nil, err
	}

	return bookings, domain.NewMetadata(int(total), pagination.Page, pagination.PageSize), nil
}

func (r *MongoBookingRepository) UpdateStatus(
	ctx context.Context,
	booking *domain.Booking,
	from domain.BookingStatus) error {

	filter := bson.D{
		{Key: "_id", Value: booking.ID},
		{Key: "status", Value: string(from)},
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: string(booking.Status)},
		{Key: "payment_reference", Value: booking.PaymentReference},
		{Key: "updated_at", Value: booking.UpdatedAt},
	}}}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}

	if res.MatchedCount > 0 {
		return nil
	}

	n, err := r.coll.CountDocuments(ctx, bson.D{{Key: "_id", Value: booking.ID}})
	if err != nil {
		return err
	}

	if n == 0 {
		return domain.ErrRecordNotFound
	}

	return domain.ErrEditConflict
}

func (r *MongoBookingRepository) ListPendingCreatedBefore(
	ctx context.Context,
	before time.Time,
	limit int) ([]*domain.Booking, error) {

	filter := bson.D{
		{Key: "status", Value: string(domain.BookingStatusPending)},
		{Key: "created_at", Value: bson.D{{Key: "$lt", Value: before}}},
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(limit))

	return r.find(ctx, filter, opts)
}

func (r *MongoBookingRepository) find(ctx context.Context, filter bson.D, opts *options.FindOptions) ([]*domain.Booking, error) {
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	var docs []mongoBooking
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	bookings := make([]*domain.Booking, 0, len(docs))
	for i := range docs {
		b, err := docs[i].toDomain()
		if err != nil {
			return nil, err
		}

		bookings = append(bookings, b)
	}

	return bookings, nil
}
