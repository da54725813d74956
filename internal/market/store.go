package market

import "context"

// Store groups the document collections backing the marketplace.
type Store interface {
	Users() UserStore
	Categories() CategoryStore
	Products() ProductStore
	Listings() ListingStore
	Advertisements() AdvertisementStore
	Bookings() BookingStore
	Payments() PaymentStore
	Ping(ctx context.Context) error
}

// IdentityStore is the read side of the users collection used by token issuance and admin checks.
type IdentityStore interface {
	FindByEmail(ctx context.Context, email string) (User, error)
}

// UserStore manages user records.
type UserStore interface {
	IdentityStore
	Create(ctx context.Context, u User) (InsertResult, error)
	List(ctx context.Context, accountType string) ([]User, error)
	// SetAdmin sets role=admin on the user with the given id, inserting it when absent.
	SetAdmin(ctx context.Context, id string) (UpdateResult, error)
	Delete(ctx context.Context, id string) (DeleteResult, error)
}

// CategoryStore manages categories. Names are unique; there is no HTTP write route.
type CategoryStore interface {
	List(ctx context.Context) ([]Category, error)
	Find(ctx context.Context, id string) (Category, error)
	Create(ctx context.Context, c Category) (InsertResult, error)
}

// ProductFilter narrows product listings. Zero values match everything.
type ProductFilter struct {
	CategoryID  string
	SellerEmail string
	Reported    *bool
}

// ProductStore manages products.
type ProductStore interface {
	List(ctx context.Context, f ProductFilter) ([]Product, error)
	Find(ctx context.Context, id string) (Product, error)
	Create(ctx context.Context, p Product) (InsertResult, error)
	Delete(ctx context.Context, id string) (DeleteResult, error)
	MarkReported(ctx context.Context, id string) (UpdateResult, error)
}

// ListingStore manages add-on product listings.
type ListingStore interface {
	List(ctx context.Context, sellerEmail string) ([]Listing, error)
	Find(ctx context.Context, id string) (Listing, error)
	Create(ctx context.Context, l Listing) (InsertResult, error)
	Delete(ctx context.Context, id string) (DeleteResult, error)
}

// AdvertisementStore manages advertised products.
type AdvertisementStore interface {
	List(ctx context.Context) ([]Advertisement, error)
	Find(ctx context.Context, id string) (Advertisement, error)
	Create(ctx context.Context, a Advertisement) (InsertResult, error)
	Delete(ctx context.Context, id string) (DeleteResult, error)
}

// BookingStore manages bookings.
type BookingStore interface {
	ListByEmail(ctx context.Context, email string) ([]Booking, error)
	Find(ctx context.Context, id string) (Booking, error)
	Create(ctx context.Context, b Booking) (InsertResult, error)
	Delete(ctx context.Context, id string) (DeleteResult, error)
	// MarkPaid sets paid=true and the transaction id. A missing booking yields a zero match, not an error.
	MarkPaid(ctx context.Context, id, transactionID string) (UpdateResult, error)
}

// PaymentStore is the append-only payment log.
type PaymentStore interface {
	Insert(ctx context.Context, p Payment) (InsertResult, error)
	ListByBooking(ctx context.Context, bookingID string) ([]Payment, error)
}
