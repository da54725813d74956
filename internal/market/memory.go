package market

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InMemory implements Store with in-process concurrency safety.
// Used by tests and by local runs without database credentials.
type InMemory struct {
	mu         sync.RWMutex
	users      *table[User]
	categories *table[Category]
	products   *table[Product]
	listings   *table[Listing]
	ads        *table[Advertisement]
	bookings   *table[Booking]
	payments   *table[Payment]
}

var _ Store = (*InMemory)(nil)

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{
		users:      newTable[User](),
		categories: newTable[Category](),
		products:   newTable[Product](),
		listings:   newTable[Listing](),
		ads:        newTable[Advertisement](),
		bookings:   newTable[Booking](),
		payments:   newTable[Payment](),
	}
}

func (s *InMemory) Users() UserStore                   { return memUsers{s} }
func (s *InMemory) Categories() CategoryStore          { return memCategories{s} }
func (s *InMemory) Products() ProductStore             { return memProducts{s} }
func (s *InMemory) Listings() ListingStore             { return memListings{s} }
func (s *InMemory) Advertisements() AdvertisementStore { return memAds{s} }
func (s *InMemory) Bookings() BookingStore             { return memBookings{s} }
func (s *InMemory) Payments() PaymentStore             { return memPayments{s} }

func (s *InMemory) Ping(ctx context.Context) error { return nil }

// SeedCategory inserts c unconditionally, keeping a preset id.
func (s *InMemory) SeedCategory(c Category) Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	s.categories.put(c.ID, c)
	return c
}

// table keeps documents in insertion order.
type table[T any] struct {
	order []primitive.ObjectID
	rows  map[primitive.ObjectID]T
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[primitive.ObjectID]T)}
}

func (t *table[T]) put(id primitive.ObjectID, v T) {
	if _, ok := t.rows[id]; !ok {
		t.order = append(t.order, id)
	}
	t.rows[id] = v
}

func (t *table[T]) get(id primitive.ObjectID) (T, bool) {
	v, ok := t.rows[id]
	return v, ok
}

func (t *table[T]) remove(id primitive.ObjectID) int64 {
	if _, ok := t.rows[id]; !ok {
		return 0
	}
	delete(t.rows, id)
	for i, o := range t.order {
		if o == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return 1
}

func (t *table[T]) filter(match func(T) bool) []T {
	out := []T{}
	for _, id := range t.order {
		v := t.rows[id]
		if match == nil || match(v) {
			out = append(out, v)
		}
	}
	return out
}

func inserted(id primitive.ObjectID) InsertResult {
	return InsertResult{Acknowledged: true, InsertedID: id.Hex()}
}

func (s *InMemory) deleteFrom(id string, remove func(primitive.ObjectID) int64) (DeleteResult, error) {
	oid, err := ParseID(id)
	if err != nil {
		return DeleteResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return DeleteResult{Acknowledged: true, DeletedCount: remove(oid)}, nil
}

type memUsers struct{ s *InMemory }

func (m memUsers) FindByEmail(ctx context.Context, email string) (User, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	found := m.s.users.filter(func(u User) bool { return u.Email == email })
	if len(found) == 0 {
		return User{}, ErrNotFound
	}
	return found[0], nil
}

func (m memUsers) Create(ctx context.Context, u User) (InsertResult, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if len(m.s.users.filter(func(x User) bool { return x.Email == u.Email })) > 0 {
		return InsertResult{}, ErrAlreadyExists
	}
	u.ID = primitive.NewObjectID()
	m.s.users.put(u.ID, u)
	return inserted(u.ID), nil
}

func (m memUsers) List(ctx context.Context, accountType string) ([]User, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	return m.s.users.filter(func(u User) bool {
		return accountType == "" || u.AccountType == accountType
	}), nil
}

func (m memUsers) SetAdmin(ctx context.Context, id string) (UpdateResult, error) {
	oid, err := ParseID(id)
	if err != nil {
		return UpdateResult{}, err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	u, ok := m.s.users.get(oid)
	if !ok {
		m.s.users.put(oid, User{ID: oid, Role: RoleAdmin})
		return UpdateResult{Acknowledged: true, UpsertedID: oid.Hex()}, nil
	}
	res := UpdateResult{Acknowledged: true, MatchedCount: 1}
	if u.Role != RoleAdmin {
		u.Role = RoleAdmin
		m.s.users.put(oid, u)
		res.ModifiedCount = 1
	}
	return res, nil
}

func (m memUsers) Delete(ctx context.Context, id string) (DeleteResult, error) {
	return m.s.deleteFrom(id, m.s.users.remove)
}

type memCategories struct{ s *InMemory }

func (m memCategories) List(ctx context.Context) ([]Category, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	return m.s.categories.filter(nil), nil
}

func (m memCategories) Find(ctx context.Context, id string) (Category, error) {
	oid, err := ParseID(id)
	if err != nil {
		return Category{}, err
	}
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	c, ok := m.s.categories.get(oid)
	if !ok {
		return Category{}, ErrNotFound
	}
	return c, nil
}

func (m memCategories) Create(ctx context.Context, c Category) (InsertResult, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if len(m.s.categories.filter(func(x Category) bool { return x.Name == c.Name })) > 0 {
		return InsertResult{}, ErrAlreadyExists
	}
	c.ID = primitive.NewObjectID()
	m.s.categories.put(c.ID, c)
	return inserted(c.ID), nil
}

type memProducts struct{ s *InMemory }

func (m memProducts) List(ctx context.Context, f ProductFilter) ([]Product, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	return m.s.products.filter(func(p Product) bool {
		if f.CategoryID != "" && p.CategoryID != f.CategoryID {
			return false
		}
		if f.SellerEmail != "" && p.SellerEmail != f.SellerEmail {
			return false
		}
		if f.Reported != nil && p.Reported != *f.Reported {
			return false
		}
		return true
	}), nil
}

func (m memProducts) Find(ctx context.Context, id string) (Product, error) {
	oid, err := ParseID(id)
	if err != nil {
		return Product{}, err
	}
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	p, ok := m.s.products.get(oid)
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (m memProducts) Create(ctx context.Context, p Product) (InsertResult, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	p.ID = primitive.NewObjectID()
	if p.PostedAt.IsZero() {
		p.PostedAt = time.Now().UTC()
	}
	m.s.products.put(p.ID, p)
	return inserted(p.ID), nil
}

func (m memProducts) Delete(ctx context.Context, id string) (DeleteResult, error) {
	return m.s.deleteFrom(id, m.s.products.remove)
}

func (m memProducts) MarkReported(ctx context.Context, id string) (UpdateResult, error) {
	oid, err := ParseID(id)
	if err != nil {
		return UpdateResult{}, err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	p, ok := m.s.products.get(oid)
	if !ok {
		return UpdateResult{Acknowledged: true}, nil
	}
	res := UpdateResult{Acknowledged: true, MatchedCount: 1}
	if !p.Reported {
		p.Reported = true
		m.s.products.put(oid, p)
		res.ModifiedCount = 1
	}
	return res, nil
}

type memListings struct{ s *InMemory }

func (m memListings) List(ctx context.Context, sellerEmail string) ([]Listing, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	return m.s.listings.filter(func(l Listing) bool {
		return sellerEmail == "" || l.SellerEmail == sellerEmail
	}), nil
}

func (m memListings) Find(ctx context.Context, id string) (Listing, error) {
	oid, err := ParseID(id)
	if err != nil {
		return Listing{}, err
	}
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	l, ok := m.s.listings.get(oid)
	if !ok {
		return Listing{}, ErrNotFound
	}
	return l, nil
}

func (m memListings) Create(ctx context.Context, l Listing) (InsertResult, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	l.ID = primitive.NewObjectID()
	if l.PostedAt.IsZero() {
		l.PostedAt = time.Now().UTC()
	}
	m.s.listings.put(l.ID, l)
	return inserted(l.ID), nil
}

func (m memListings) Delete(ctx context.Context, id string) (DeleteResult, error) {
	return m.s.deleteFrom(id, m.s.listings.remove)
}

type memAds struct{ s *InMemory }

func (m memAds) List(ctx context.Context) ([]Advertisement, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	return m.s.ads.filter(nil), nil
}

func (m memAds) Find(ctx context.Context, id string) (Advertisement, error) {
	oid, err := ParseID(id)
	if err != nil {
		return Advertisement{}, err
	}
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	a, ok := m.s.ads.get(oid)
	if !ok {
		return Advertisement{}, ErrNotFound
	}
	return a, nil
}

func (m memAds) Create(ctx context.Context, a Advertisement) (InsertResult, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	a.ID = primitive.NewObjectID()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	m.s.ads.put(a.ID, a)
	return inserted(a.ID), nil
}

func (m memAds) Delete(ctx context.Context, id string) (DeleteResult, error) {
	return m.s.deleteFrom(id, m.s.ads.remove)
}

type memBookings struct{ s *InMemory }

func (m memBookings) ListByEmail(ctx context.Context, email string) ([]Booking, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	return m.s.bookings.filter(func(b Booking) bool { return b.Email == email }), nil
}

func (m memBookings) Find(ctx context.Context, id string) (Booking, error) {
	oid, err := ParseID(id)
	if err != nil {
		return Booking{}, err
	}
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	b, ok := m.s.bookings.get(oid)
	if !ok {
		return Booking{}, ErrNotFound
	}
	return b, nil
}

func (m memBookings) Create(ctx context.Context, b Booking) (InsertResult, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	b.ID = primitive.NewObjectID()
	m.s.bookings.put(b.ID, b)
	return inserted(b.ID), nil
}

func (m memBookings) Delete(ctx context.Context, id string) (DeleteResult, error) {
	return m.s.deleteFrom(id, m.s.bookings.remove)
}

func (m memBookings) MarkPaid(ctx context.Context, id, transactionID string) (UpdateResult, error) {
	oid, err := ParseID(id)
	if err != nil {
		return UpdateResult{}, err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	b, ok := m.s.bookings.get(oid)
	if !ok {
		return UpdateResult{Acknowledged: true}, nil
	}
	res := UpdateResult{Acknowledged: true, MatchedCount: 1}
	if !b.Paid || b.TransactionID != transactionID {
		res.ModifiedCount = 1
	}
	b.Paid = true
	b.TransactionID = transactionID
	m.s.bookings.put(oid, b)
	return res, nil
}

type memPayments struct{ s *InMemory }

func (m memPayments) Insert(ctx context.Context, p Payment) (InsertResult, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	p.ID = primitive.NewObjectID()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	m.s.payments.put(p.ID, p)
	return inserted(p.ID), nil
}

func (m memPayments) ListByBooking(ctx context.Context, bookingID string) ([]Payment, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	return m.s.payments.filter(func(p Payment) bool { return p.BookingID == bookingID }), nil
}
