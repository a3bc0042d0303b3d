package playerstore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/chessio/chessio-server/internal/domain"
)

const usersCollection = "users"

// Mongo implements Store over a MongoDB users collection.
type Mongo struct {
	client *mongo.Client
	users  *mongo.Collection
}

func NewMongo(ctx context.Context, uri, dbName string) (*Mongo, error) {
	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(cctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(cctx, nil); err != nil {
		return nil, err
	}
	return &Mongo{
		client: client,
		users:  client.Database(dbName).Collection(usersCollection),
	}, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// idFilter matches by ObjectID when the id parses as one, by raw string
// otherwise. Documents created outside this service carry ObjectIDs.
func idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": oid}
	}
	return bson.M{"_id": id}
}

func (m *Mongo) FindByUsername(ctx context.Context, username string) (*domain.Player, error) {
	var p domain.Player
	err := m.users.FindOne(ctx, bson.M{"username": username}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrPlayerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (m *Mongo) FindByID(ctx context.Context, id string) (*domain.Player, error) {
	var p domain.Player
	err := m.users.FindOne(ctx, idFilter(id)).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrPlayerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (m *Mongo) SetOnline(ctx context.Context, id string, online bool) error {
	_, err := m.users.UpdateOne(ctx, idFilter(id), bson.M{"$set": bson.M{"isOnline": online}})
	return err
}

func (m *Mongo) SetWaiting(ctx context.Context, id string, waiting bool) error {
	_, err := m.users.UpdateOne(ctx, idFilter(id), bson.M{"$set": bson.M{"waiting": waiting}})
	return err
}

func (m *Mongo) SetCurrentSession(ctx context.Context, id, sessionID string, status domain.SessionRef) error {
	_, err := m.users.UpdateOne(ctx, idFilter(id), bson.M{"$set": bson.M{
		"lastGame":       sessionID,
		"lastGameStatus": status,
	}})
	return err
}

// ApplyRatingDelta increments the per-type rating in place. A document that
// has never played this type gets the default base rating plus the delta, so
// the increment stays a single atomic update per branch.
func (m *Mongo) ApplyRatingDelta(ctx context.Context, id string, gt domain.GameType, delta float64) error {
	field := "gameStats." + string(gt) + ".currentRating"
	res, err := m.users.UpdateOne(ctx,
		bson.M{"$and": bson.A{idFilter(id), bson.M{field: bson.M{"$gt": 0}}}},
		bson.M{"$inc": bson.M{field: delta}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}
	res, err = m.users.UpdateOne(ctx, idFilter(id),
		bson.M{"$set": bson.M{field: domain.DefaultRating + delta}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrPlayerNotFound
	}
	return nil
}

func (m *Mongo) AddOpponentHistory(ctx context.Context, id, opponentID string, result domain.GameResult) error {
	field := "opponentHistory.$."
	switch result {
	case domain.ResultWin:
		field += "winCount"
	case domain.ResultLose:
		field += "loseCount"
	default:
		field += "drawCount"
	}

	filter := bson.M{"$and": bson.A{idFilter(id), bson.M{"opponentHistory.opponentId": opponentID}}}
	res, err := m.users.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{field: 1}})
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}

	agg := domain.OpponentAggregate{OpponentID: opponentID}
	switch result {
	case domain.ResultWin:
		agg.WinCount = 1
	case domain.ResultLose:
		agg.LoseCount = 1
	default:
		agg.DrawCount = 1
	}
	res, err = m.users.UpdateOne(ctx, idFilter(id), bson.M{"$push": bson.M{"opponentHistory": agg}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrPlayerNotFound
	}
	return nil
}

func (m *Mongo) AddOutcomeRecord(ctx context.Context, id string, rec domain.OutcomeRecord) error {
	res, err := m.users.UpdateOne(ctx, idFilter(id), bson.M{"$push": bson.M{"pastMatches": rec}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrPlayerNotFound
	}
	return nil
}
