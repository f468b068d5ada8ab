package repository

import (
	"context"
	"fmt"
	"kinship/internal/apperr"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type OpKind string

const (
	OpInsert  OpKind = "insert"
	OpUpdate  OpKind = "update"
	OpReplace OpKind = "replace"
	OpDelete  OpKind = "delete"
)

// WriteOp is one document mutation inside a batch
type WriteOp struct {
	Collection string
	Kind       OpKind
	Filter     bson.M
	Document   any    // insert and replace
	Update     bson.M // update
	Upsert     bool
}

func InsertOp(collection string, doc any) WriteOp {
	return WriteOp{Collection: collection, Kind: OpInsert, Document: doc}
}

func UpdateOp(collection string, filter, update bson.M) WriteOp {
	return WriteOp{Collection: collection, Kind: OpUpdate, Filter: filter, Update: update}
}

func ReplaceOp(collection string, filter bson.M, doc any, upsert bool) WriteOp {
	return WriteOp{Collection: collection, Kind: OpReplace, Filter: filter, Document: doc, Upsert: upsert}
}

// BatchWriter applies a list of writes. Ops are grouped per collection and applied in order
// with one ordered BulkWrite each; there is no cross-collection atomicity.
type BatchWriter interface {
	BatchWrite(ctx context.Context, ops []WriteOp) error
}

type batchWriter struct {
	db *mongo.Database
}

func NewBatchWriter(db *mongo.Database) BatchWriter {
	return &batchWriter{db: db}
}

func (w *batchWriter) BatchWrite(ctx context.Context, ops []WriteOp) error {
	collections, grouped, err := groupOps(ops)
	if err != nil {
		return err
	}
	opts := options.BulkWrite().SetOrdered(true)
	for _, name := range collections {
		if _, err := w.db.Collection(name).BulkWrite(ctx, grouped[name], opts); err != nil {
			return translate("batch write "+name, err)
		}
	}
	return nil
}

// groupOps converts ops to write models, keeping collections in first-seen order
func groupOps(ops []WriteOp) ([]string, map[string][]mongo.WriteModel, error) {
	var order []string
	grouped := make(map[string][]mongo.WriteModel)
	for i, op := range ops {
		if op.Collection == "" {
			return nil, nil, apperr.Validation(fmt.Sprintf("write op %d has no collection", i))
		}
		m, err := writeModel(op)
		if err != nil {
			return nil, nil, err
		}
		if _, ok := grouped[op.Collection]; !ok {
			order = append(order, op.Collection)
		}
		grouped[op.Collection] = append(grouped[op.Collection], m)
	}
	return order, grouped, nil
}

func writeModel(op WriteOp) (mongo.WriteModel, error) {
	switch op.Kind {
	case OpInsert:
		if op.Document == nil {
			return nil, apperr.Validation("insert op without document")
		}
		return mongo.NewInsertOneModel().SetDocument(op.Document), nil
	case OpUpdate:
		if len(op.Update) == 0 {
			return nil, apperr.Validation("update op without update")
		}
		return mongo.NewUpdateOneModel().SetFilter(op.Filter).SetUpdate(op.Update).SetUpsert(op.Upsert), nil
	case OpReplace:
		if op.Document == nil {
			return nil, apperr.Validation("replace op without document")
		}
		return mongo.NewReplaceOneModel().SetFilter(op.Filter).SetReplacement(op.Document).SetUpsert(op.Upsert), nil
	case OpDelete:
		return mongo.NewDeleteOneModel().SetFilter(op.Filter), nil
	default:
		return nil, apperr.Validation(fmt.Sprintf("unknown write op kind %q", op.Kind))
	}
}

// EnsureIndexes creates the indexes the read paths rely on
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		ChatsCollection: {
			{Keys: bson.D{{Key: "participants", Value: 1}, {Key: "lastMessageAt", Value: -1}}},
		},
		MessagesCollection: {
			{Keys: bson.D{{Key: "chatId", Value: 1}, {Key: "sentAt", Value: -1}}},
		},
		ProfilesCollection: {
			{Keys: bson.D{{Key: "anonymous", Value: 1}, {Key: "createdAt", Value: 1}}},
			{Keys: bson.D{{Key: "userId", Value: 1}}},
		},
	}
	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return translate("ensure indexes "+name, err)
		}
	}
	return nil
}
