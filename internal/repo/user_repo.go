package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/JM-Mushraf/TownSquare-sub000/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

func (s *Store) InsertUser(ctx context.Context, u *domain.User) error {
	sp, _ := tracer.StartSpanFromContext(ctx, "mongo.users.insert")
	defer sp.Finish()

	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	_, err := s.colUsers.InsertOne(ctx, u)
	if IsDup(err) {
		return fmt.Errorf("%w: username or email already taken", domain.ErrConflict)
	}
	if err != nil {
		sp.SetTag("error", err)
	}
	return err
}

func (s *Store) GetUser(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	sp, _ := tracer.StartSpanFromContext(ctx, "mongo.users.find_one", tracer.Tag("user_id", id.Hex()))
	defer sp.Finish()

	var u domain.User
	err := s.colUsers.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, id.Hex())
	}
	if err != nil {
		sp.SetTag("error", err)
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func (s *Store) DeleteUser(ctx context.Context, id primitive.ObjectID) error {
	sp, _ := tracer.StartSpanFromContext(ctx, "mongo.users.delete", tracer.Tag("user_id", id.Hex()))
	defer sp.Finish()

	res, err := s.colUsers.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		sp.SetTag("error", err)
		return fmt.Errorf("delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: user %s", domain.ErrNotFound, id.Hex())
	}
	return nil
}

// FindUsersByIDs loads all referenced users in a single query.
func (s *Store) FindUsersByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]domain.User, error) {
	sp, _ := tracer.StartSpanFromContext(ctx, "mongo.users.find_many", tracer.Tag("count", len(ids)))
	defer sp.Finish()

	out := make(map[primitive.ObjectID]domain.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.colUsers.Find(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"username": 1}),
	)
	if err != nil {
		sp.SetTag("error", err)
		return nil, fmt.Errorf("find users: %w", err)
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var u domain.User
		if err := cur.Decode(&u); err != nil {
			return nil, err
		}
		out[u.ID] = u
	}
	return out, cur.Err()
}
