package market

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleAdmin = "admin"

	AccountBuyer  = "buyer"
	AccountSeller = "seller"
)

// User is an identity record keyed by email.
type User struct {
	ID          primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Name        string             `json:"name,omitempty" bson:"name,omitempty"`
	Email       string             `json:"email" bson:"email"`
	Role        string             `json:"role,omitempty" bson:"role,omitempty"`
	AccountType string             `json:"accountType,omitempty" bson:"accountType,omitempty"`
	Verified    bool               `json:"verified,omitempty" bson:"verified,omitempty"`
}

func (u User) IsAdmin() bool  { return u.Role == RoleAdmin }
func (u User) IsSeller() bool { return u.AccountType == AccountSeller }

// Category groups products on the storefront.
type Category struct {
	ID    primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Name  string             `json:"name" bson:"name"`
	Image string             `json:"image,omitempty" bson:"image,omitempty"`
}

// Product is a second-hand item offered for resale.
// Prices are whole currency units as submitted by the storefront.
type Product struct {
	ID            primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	CategoryID    string             `json:"categoryId" bson:"categoryId"`
	Name          string             `json:"name" bson:"name"`
	Image         string             `json:"image,omitempty" bson:"image,omitempty"`
	Location      string             `json:"location,omitempty" bson:"location,omitempty"`
	ResalePrice   float64            `json:"resalePrice" bson:"resalePrice"`
	OriginalPrice float64            `json:"originalPrice,omitempty" bson:"originalPrice,omitempty"`
	YearsOfUse    float64            `json:"yearsOfUse,omitempty" bson:"yearsOfUse,omitempty"`
	Condition     string             `json:"condition,omitempty" bson:"condition,omitempty"`
	SellerName    string             `json:"sellerName,omitempty" bson:"sellerName,omitempty"`
	SellerEmail   string             `json:"sellerEmail" bson:"sellerEmail"`
	PostedAt      time.Time          `json:"postedAt" bson:"postedAt"`
	Reported      bool               `json:"reported,omitempty" bson:"reported,omitempty"`
}

// Listing is a product a seller added from the dashboard; kept in its own collection.
type Listing Product

// Advertisement promotes a product on the home page.
type Advertisement struct {
	ID          primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	ProductID   string             `json:"productId" bson:"productId"`
	Name        string             `json:"name" bson:"name"`
	Image       string             `json:"image,omitempty" bson:"image,omitempty"`
	ResalePrice float64            `json:"resalePrice,omitempty" bson:"resalePrice,omitempty"`
	SellerEmail string             `json:"sellerEmail" bson:"sellerEmail"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
}

// Booking is a buyer's order for a product. Paid flips to true once a payment is recorded.
type Booking struct {
	ID            primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Email         string             `json:"email" bson:"email"`
	BuyerName     string             `json:"buyerName,omitempty" bson:"buyerName,omitempty"`
	Phone         string             `json:"phone,omitempty" bson:"phone,omitempty"`
	MeetLocation  string             `json:"meetLocation,omitempty" bson:"meetLocation,omitempty"`
	ProductID     string             `json:"productId,omitempty" bson:"productId,omitempty"`
	ProductName   string             `json:"productName,omitempty" bson:"productName,omitempty"`
	Image         string             `json:"image,omitempty" bson:"image,omitempty"`
	Price         float64            `json:"price" bson:"price"`
	Paid          bool               `json:"paid" bson:"paid,omitempty"`
	TransactionID string             `json:"transactionId,omitempty" bson:"transactionId,omitempty"`
}

// Payment is an append-only record of a completed charge.
type Payment struct {
	ID            primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	BookingID     string             `json:"bookingId" bson:"bookingId"`
	TransactionID string             `json:"transactionId" bson:"transactionId"`
	Price         float64            `json:"price,omitempty" bson:"price,omitempty"`
	Email         string             `json:"email,omitempty" bson:"email,omitempty"`
	CreatedAt     time.Time          `json:"createdAt" bson:"createdAt"`
}

// InsertResult mirrors the document store acknowledgement of a single insert.
type InsertResult struct {
	Acknowledged bool   `json:"acknowledged"`
	InsertedID   string `json:"insertedId"`
}

// UpdateResult mirrors the document store acknowledgement of a single update.
type UpdateResult struct {
	Acknowledged  bool   `json:"acknowledged"`
	MatchedCount  int64  `json:"matchedCount"`
	ModifiedCount int64  `json:"modifiedCount"`
	UpsertedID    string `json:"upsertedId,omitempty"`
}

// DeleteResult mirrors the document store acknowledgement of a single delete.
type DeleteResult struct {
	Acknowledged bool  `json:"acknowledged"`
	DeletedCount int64 `json:"deletedCount"`
}

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidID     = errors.New("invalid document id")
	ErrAlreadyExists = errors.New("already exists")
)

// ParseID converts a hex document id into an ObjectID.
func ParseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}
	return oid, nil
}
