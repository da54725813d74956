package mongodb

import (
	"context"
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"endlessessentials.app/internal/market"
)

func TestProductFilter(t *testing.T) {
	yes, no := true, false

	q := productFilter(market.ProductFilter{})
	if len(q) != 0 {
		t.Fatalf("empty filter should match all, got %v", q)
	}

	q = productFilter(market.ProductFilter{CategoryID: "c1", SellerEmail: "s@x.com", Reported: &yes})
	if q["categoryId"] != "c1" || q["sellerEmail"] != "s@x.com" || q["reported"] != true {
		t.Fatalf("unexpected filter: %v", q)
	}

	q = productFilter(market.ProductFilter{Reported: &no})
	ne, ok := q["reported"].(bson.M)
	if !ok || ne["$ne"] != true {
		t.Fatalf("unreported filter should match missing field: %v", q)
	}
}

func TestPaidUpdateSetsBothFields(t *testing.T) {
	set := paidUpdate("T1")
	if set["paid"] != true || set["transactionId"] != "T1" || len(set) != 2 {
		t.Fatalf("unexpected update document: %v", set)
	}
}

func TestHexID(t *testing.T) {
	oid := primitive.NewObjectID()
	if got := hexID(oid); got != oid.Hex() {
		t.Fatalf("hexID(ObjectID)=%q, want %q", got, oid.Hex())
	}
	if got := hexID("custom"); got != "custom" {
		t.Fatalf("hexID(string)=%q", got)
	}
	if got := hexID(nil); got != "" {
		t.Fatalf("hexID(nil)=%q", got)
	}
}

func TestToUpdateResultUpsert(t *testing.T) {
	oid := primitive.NewObjectID()
	res := toUpdateResult(&mongo.UpdateResult{UpsertedCount: 1, UpsertedID: oid})
	if !res.Acknowledged || res.UpsertedID != oid.Hex() || res.MatchedCount != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestDocumentsOmitZeroID(t *testing.T) {
	raw, err := bson.Marshal(market.Booking{Email: "a@x.com", Price: 25})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := doc["_id"]; ok {
		t.Fatalf("zero id must be omitted so the server assigns one: %v", doc)
	}
	if _, ok := doc["paid"]; ok {
		t.Fatalf("new bookings should not carry a paid flag: %v", doc)
	}
}

func TestMongoWritePaths(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("mark paid sets fields without upsert", func(mt *mtest.T) {
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		res, err := bookings{mt.Coll}.MarkPaid(ctx, id.Hex(), "T1")
		if err != nil {
			mt.Fatalf("MarkPaid: %v", err)
		}
		if res.MatchedCount != 1 || res.ModifiedCount != 1 || res.UpsertedID != "" {
			mt.Fatalf("unexpected update result: %+v", res)
		}

		cmd := mt.GetStartedEvent().Command
		if got, ok := cmd.Lookup("updates", "0", "q", "_id").ObjectIDOK(); !ok || got != id {
			mt.Fatalf("unexpected filter id: %v", cmd)
		}
		if paid, ok := cmd.Lookup("updates", "0", "u", "$set", "paid").BooleanOK(); !ok || !paid {
			mt.Fatalf("paid not set: %v", cmd)
		}
		if tx, ok := cmd.Lookup("updates", "0", "u", "$set", "transactionId").StringValueOK(); !ok || tx != "T1" {
			mt.Fatalf("transactionId not set: %v", cmd)
		}
		if upsert, ok := cmd.Lookup("updates", "0", "upsert").BooleanOK(); ok && upsert {
			mt.Fatalf("MarkPaid must not upsert: %v", cmd)
		}
	})

	mt.Run("mark paid on missing booking matches nothing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		res, err := bookings{mt.Coll}.MarkPaid(ctx, primitive.NewObjectID().Hex(), "T1")
		if err != nil {
			mt.Fatalf("missing booking must not fail: %v", err)
		}
		if res.MatchedCount != 0 || res.ModifiedCount != 0 {
			mt.Fatalf("unexpected update result: %+v", res)
		}
	})

	mt.Run("set admin upserts role", func(mt *mtest.T) {
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 0},
			bson.E{Key: "upserted", Value: bson.A{bson.D{{Key: "index", Value: 0}, {Key: "_id", Value: id}}}},
		))

		res, err := users{mt.Coll}.SetAdmin(ctx, id.Hex())
		if err != nil {
			mt.Fatalf("SetAdmin: %v", err)
		}
		if res.UpsertedID != id.Hex() || res.MatchedCount != 0 {
			mt.Fatalf("expected upsert of %s, got %+v", id.Hex(), res)
		}

		cmd := mt.GetStartedEvent().Command
		if upsert, ok := cmd.Lookup("updates", "0", "upsert").BooleanOK(); !ok || !upsert {
			mt.Fatalf("SetAdmin must upsert: %v", cmd)
		}
		if role, ok := cmd.Lookup("updates", "0", "u", "$set", "role").StringValueOK(); !ok || role != string(market.RoleAdmin) {
			mt.Fatalf("role not set to admin: %v", cmd)
		}
	})

	mt.Run("set admin rejects malformed id before the server", func(mt *mtest.T) {
		if _, err := (users{mt.Coll}).SetAdmin(ctx, "not-an-id"); !errors.Is(err, market.ErrInvalidID) {
			mt.Fatalf("expected ErrInvalidID, got %v", err)
		}
		if ev := mt.GetStartedEvent(); ev != nil {
			mt.Fatalf("unexpected command sent: %s", ev.CommandName)
		}
	})

	mt.Run("find listing maps empty batch to not found", func(mt *mtest.T) {
		ns := mt.DB.Name() + "." + mt.Coll.Name()
		id := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
				{Key: "_id", Value: id},
				{Key: "name", Value: "lamp"},
				{Key: "sellerEmail", Value: "s@x.com"},
			}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch),
		)

		l, err := listings{mt.Coll}.Find(ctx, id.Hex())
		if err != nil || l.SellerEmail != "s@x.com" {
			mt.Fatalf("unexpected listing: %+v err=%v", l, err)
		}
		if _, err := (listings{mt.Coll}).Find(ctx, id.Hex()); !errors.Is(err, market.ErrNotFound) {
			mt.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}
