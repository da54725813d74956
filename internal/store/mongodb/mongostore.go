package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"endlessessentials.app/internal/market"
)

// Collection names.
const (
	collUsers          = "users"
	collCategories     = "categories"
	collProducts       = "products"
	collListings       = "addproducts"
	collAdvertisements = "advertise"
	collBookings       = "bookings"
	collPayments       = "payments"
)

// Store implements market.Store on a MongoDB database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ market.Store = (*Store)(nil)

// Open connects using the stable server API v1 and selects database name.
func Open(ctx context.Context, uri, name string) (*Store, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
		SetMaxPoolSize(50).
		SetConnectTimeout(10 * time.Second)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	return &Store{client: client, db: client.Database(name)}, nil
}

func (s *Store) Close(ctx context.Context) error { return s.client.Disconnect(ctx) }

func (s *Store) Ping(ctx context.Context) error { return s.client.Ping(ctx, readpref.Primary()) }

func (s *Store) Users() market.UserStore       { return users{s.db.Collection(collUsers)} }
func (s *Store) Products() market.ProductStore { return products{s.db.Collection(collProducts)} }
func (s *Store) Listings() market.ListingStore { return listings{s.db.Collection(collListings)} }
func (s *Store) Bookings() market.BookingStore { return bookings{s.db.Collection(collBookings)} }
func (s *Store) Payments() market.PaymentStore { return payments{s.db.Collection(collPayments)} }

func (s *Store) Categories() market.CategoryStore {
	return categories{s.db.Collection(collCategories)}
}

func (s *Store) Advertisements() market.AdvertisementStore {
	return advertisements{s.db.Collection(collAdvertisements)}
}

// EnsureIndexes creates the unique email and category name indexes and the lookup indexes used by the API.
func (s *Store) EnsureIndexes(ctx context.Context) ([]string, error) {
	specs := map[string][]mongo.IndexModel{
		collUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("email_unique")},
			{Keys: bson.D{{Key: "accountType", Value: 1}}},
		},
		collCategories: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true).SetName("name_unique")},
		},
		collBookings: {{Keys: bson.D{{Key: "email", Value: 1}}}},
		collPayments: {{Keys: bson.D{{Key: "bookingId", Value: 1}}}},
		collProducts: {
			{Keys: bson.D{{Key: "categoryId", Value: 1}, {Key: "reported", Value: 1}}},
			{Keys: bson.D{{Key: "sellerEmail", Value: 1}}},
		},
		collListings: {{Keys: bson.D{{Key: "sellerEmail", Value: 1}}}},
	}
	var created []string
	for coll, models := range specs {
		names, err := s.db.Collection(coll).Indexes().CreateMany(ctx, models)
		if err != nil {
			return created, fmt.Errorf("create indexes on %s: %w", coll, err)
		}
		for _, n := range names {
			created = append(created, coll+"."+n)
		}
	}
	return created, nil
}

func findAll[T any](ctx context.Context, c *mongo.Collection, filter any) ([]T, error) {
	cur, err := c.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func findByID[T any](ctx context.Context, c *mongo.Collection, id string) (T, error) {
	var v T
	oid, err := market.ParseID(id)
	if err != nil {
		return v, err
	}
	err = c.FindOne(ctx, bson.M{"_id": oid}).Decode(&v)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return v, market.ErrNotFound
	}
	return v, err
}

func insertOne(ctx context.Context, c *mongo.Collection, doc any) (market.InsertResult, error) {
	res, err := c.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return market.InsertResult{}, market.ErrAlreadyExists
	}
	if err != nil {
		return market.InsertResult{}, err
	}
	return market.InsertResult{Acknowledged: true, InsertedID: hexID(res.InsertedID)}, nil
}

func updateByID(ctx context.Context, c *mongo.Collection, id string, set bson.M, upsert bool) (market.UpdateResult, error) {
	oid, err := market.ParseID(id)
	if err != nil {
		return market.UpdateResult{}, err
	}
	res, err := c.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, options.Update().SetUpsert(upsert))
	if err != nil {
		return market.UpdateResult{}, err
	}
	return toUpdateResult(res), nil
}

func deleteByID(ctx context.Context, c *mongo.Collection, id string) (market.DeleteResult, error) {
	oid, err := market.ParseID(id)
	if err != nil {
		return market.DeleteResult{}, err
	}
	res, err := c.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return market.DeleteResult{}, err
	}
	return market.DeleteResult{Acknowledged: true, DeletedCount: res.DeletedCount}, nil
}

func toUpdateResult(res *mongo.UpdateResult) market.UpdateResult {
	out := market.UpdateResult{
		Acknowledged:  true,
		MatchedCount:  res.MatchedCount,
		ModifiedCount: res.ModifiedCount,
	}
	if res.UpsertedID != nil {
		out.UpsertedID = hexID(res.UpsertedID)
	}
	return out
}

func hexID(v any) string {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	case nil:
		return ""
	default:
		return fmt.Sprint(id)
	}
}

// productFilter translates a market.ProductFilter into a query document.
func productFilter(f market.ProductFilter) bson.M {
	q := bson.M{}
	if f.CategoryID != "" {
		q["categoryId"] = f.CategoryID
	}
	if f.SellerEmail != "" {
		q["sellerEmail"] = f.SellerEmail
	}
	if f.Reported != nil {
		if *f.Reported {
			q["reported"] = true
		} else {
			// unreported documents usually omit the field
			q["reported"] = bson.M{"$ne": true}
		}
	}
	return q
}

func sellerFilter(email string) bson.M {
	if email == "" {
		return bson.M{}
	}
	return bson.M{"sellerEmail": email}
}

type users struct{ c *mongo.Collection }

func (u users) FindByEmail(ctx context.Context, email string) (market.User, error) {
	var out market.User
	err := u.c.FindOne(ctx, bson.M{"email": email}).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return market.User{}, market.ErrNotFound
	}
	return out, err
}

func (u users) Create(ctx context.Context, user market.User) (market.InsertResult, error) {
	user.ID = primitive.NilObjectID
	return insertOne(ctx, u.c, user)
}

func (u users) List(ctx context.Context, accountType string) ([]market.User, error) {
	filter := bson.M{}
	if accountType != "" {
		filter["accountType"] = accountType
	}
	return findAll[market.User](ctx, u.c, filter)
}

func (u users) SetAdmin(ctx context.Context, id string) (market.UpdateResult, error) {
	return updateByID(ctx, u.c, id, bson.M{"role": market.RoleAdmin}, true)
}

func (u users) Delete(ctx context.Context, id string) (market.DeleteResult, error) {
	return deleteByID(ctx, u.c, id)
}

type categories struct{ c *mongo.Collection }

func (s categories) List(ctx context.Context) ([]market.Category, error) {
	return findAll[market.Category](ctx, s.c, bson.M{})
}

func (s categories) Find(ctx context.Context, id string) (market.Category, error) {
	return findByID[market.Category](ctx, s.c, id)
}

func (s categories) Create(ctx context.Context, c market.Category) (market.InsertResult, error) {
	c.ID = primitive.NilObjectID
	return insertOne(ctx, s.c, c)
}

type products struct{ c *mongo.Collection }

func (s products) List(ctx context.Context, f market.ProductFilter) ([]market.Product, error) {
	return findAll[market.Product](ctx, s.c, productFilter(f))
}

func (s products) Find(ctx context.Context, id string) (market.Product, error) {
	return findByID[market.Product](ctx, s.c, id)
}

func (s products) Create(ctx context.Context, p market.Product) (market.InsertResult, error) {
	p.ID = primitive.NilObjectID
	if p.PostedAt.IsZero() {
		p.PostedAt = time.Now().UTC()
	}
	return insertOne(ctx, s.c, p)
}

func (s products) Delete(ctx context.Context, id string) (market.DeleteResult, error) {
	return deleteByID(ctx, s.c, id)
}

func (s products) MarkReported(ctx context.Context, id string) (market.UpdateResult, error) {
	return updateByID(ctx, s.c, id, bson.M{"reported": true}, false)
}

type listings struct{ c *mongo.Collection }

func (s listings) List(ctx context.Context, sellerEmail string) ([]market.Listing, error) {
	return findAll[market.Listing](ctx, s.c, sellerFilter(sellerEmail))
}

func (s listings) Find(ctx context.Context, id string) (market.Listing, error) {
	return findByID[market.Listing](ctx, s.c, id)
}

func (s listings) Create(ctx context.Context, l market.Listing) (market.InsertResult, error) {
	l.ID = primitive.NilObjectID
	if l.PostedAt.IsZero() {
		l.PostedAt = time.Now().UTC()
	}
	return insertOne(ctx, s.c, l)
}

func (s listings) Delete(ctx context.Context, id string) (market.DeleteResult, error) {
	return deleteByID(ctx, s.c, id)
}

type advertisements struct{ c *mongo.Collection }

func (s advertisements) List(ctx context.Context) ([]market.Advertisement, error) {
	return findAll[market.Advertisement](ctx, s.c, bson.M{})
}

func (s advertisements) Find(ctx context.Context, id string) (market.Advertisement, error) {
	return findByID[market.Advertisement](ctx, s.c, id)
}

func (s advertisements) Create(ctx context.Context, a market.Advertisement) (market.InsertResult, error) {
	a.ID = primitive.NilObjectID
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	return insertOne(ctx, s.c, a)
}

func (s advertisements) Delete(ctx context.Context, id string) (market.DeleteResult, error) {
	return deleteByID(ctx, s.c, id)
}

type bookings struct{ c *mongo.Collection }

func (s bookings) ListByEmail(ctx context.Context, email string) ([]market.Booking, error) {
	return findAll[market.Booking](ctx, s.c, bson.M{"email": email})
}

func (s bookings) Find(ctx context.Context, id string) (market.Booking, error) {
	return findByID[market.Booking](ctx, s.c, id)
}

func (s bookings) Create(ctx context.Context, b market.Booking) (market.InsertResult, error) {
	b.ID = primitive.NilObjectID
	return insertOne(ctx, s.c, b)
}

func (s bookings) Delete(ctx context.Context, id string) (market.DeleteResult, error) {
	return deleteByID(ctx, s.c, id)
}

func (s bookings) MarkPaid(ctx context.Context, id, transactionID string) (market.UpdateResult, error) {
	return updateByID(ctx, s.c, id, paidUpdate(transactionID), false)
}

func paidUpdate(transactionID string) bson.M {
	return bson.M{"paid": true, "transactionId": transactionID}
}

type payments struct{ c *mongo.Collection }

func (s payments) Insert(ctx context.Context, p market.Payment) (market.InsertResult, error) {
	p.ID = primitive.NilObjectID
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	return insertOne(ctx, s.c, p)
}

func (s payments) ListByBooking(ctx context.Context, bookingID string) ([]market.Payment, error) {
	return findAll[market.Payment](ctx, s.c, bson.M{"bookingId": bookingID})
}
