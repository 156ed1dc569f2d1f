package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JM-Mushraf/TownSquare-sub000/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

func (s *Store) GetPost(ctx context.Context, id primitive.ObjectID) (*domain.Post, error) {
	sp, _ := tracer.StartSpanFromContext(ctx, "mongo.posts.find_one", tracer.Tag("post_id", id.Hex()))
	defer sp.Finish()

	var p domain.Post
	err := s.colPosts.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: post %s", domain.ErrNotFound, id.Hex())
	}
	if err != nil {
		sp.SetTag("error", err)
		return nil, fmt.Errorf("find post: %w", err)
	}
	return &p, nil
}

func (s *Store) InsertPost(ctx context.Context, p *domain.Post) error {
	sp, _ := tracer.StartSpanFromContext(ctx, "mongo.posts.insert", tracer.Tag("post_type", string(p.Type)))
	defer sp.Finish()

	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if _, err := s.colPosts.InsertOne(ctx, p); err != nil {
		sp.SetTag("error", err)
		return err
	}
	return nil
}

func (s *Store) DeletePost(ctx context.Context, id primitive.ObjectID) error {
	sp, _ := tracer.StartSpanFromContext(ctx, "mongo.posts.delete", tracer.Tag("post_id", id.Hex()))
	defer sp.Finish()

	res, err := s.colPosts.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		sp.SetTag("error", err)
		return fmt.Errorf("delete post: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: post %s", domain.ErrNotFound, id.Hex())
	}
	return nil
}

// CastPollVote increments the option counter and records the voter in one
// update. The filter only matches while the voter is absent from every
// option of the poll, so concurrent or repeated calls cannot double count.
func (s *Store) CastPollVote(ctx context.Context, postID, optionID, userID primitive.ObjectID) (bool, error) {
	sp, _ := tracer.StartSpanFromContext(ctx, "mongo.posts.cast_poll_vote",
		tracer.Tag("post_id", postID.Hex()),
		tracer.Tag("user_id", userID.Hex()),
	)
	defer sp.Finish()

	filter := bson.M{
		"_id":                           postID,
		"type":                          domain.PostPoll,
		"poll.options.id":               optionID,
		"poll.options.voted_by.user_id": bson.M{"$ne": userID},
	}
	update := bson.M{
		"$inc":  bson.M{"poll.options.$[opt].votes": 1},
		"$push": bson.M{"poll.options.$[opt].voted_by": bson.M{"user_id": userID}},
	}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"opt.id": optionID}},
	})
	res, err := s.colPosts.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		sp.SetTag("error", err)
		return false, err
	}
	return res.MatchedCount == 1, nil
}

// castSurvey appends entry to the named ledger of question qi when userID
// has no entry there yet.
func (s *Store) castSurvey(ctx context.Context, postID primitive.ObjectID, qi int, kind domain.QuestionType, ledger string, entry bson.M, extra bson.M) (bool, error) {
	userID := entry["user_id"].(primitive.ObjectID)
	sp, _ := tracer.StartSpanFromContext(ctx, "mongo.posts.cast_survey_"+ledger,
		tracer.Tag("post_id", postID.Hex()),
		tracer.Tag("user_id", userID.Hex()),
		tracer.Tag("question", qi),
	)
	defer sp.Finish()

	q := fmt.Sprintf("survey.questions.%d", qi)
	filter := bson.M{
		"_id":                         postID,
		"type":                        domain.PostSurvey,
		q + ".type":                   kind,
		q + "." + ledger + ".user_id": bson.M{"$ne": userID},
	}
	for k, v := range extra {
		filter[k] = v
	}
	update := bson.M{"$push": bson.M{q + "." + ledger: entry}}

	res, err := s.colPosts.UpdateOne(ctx, filter, update)
	if err != nil {
		sp.SetTag("error", err)
		return false, err
	}
	return res.MatchedCount == 1, nil
}

func (s *Store) CastChoiceVote(ctx context.Context, postID primitive.ObjectID, qi, optionIndex int, userID primitive.ObjectID) (bool, error) {
	// the option must still exist at that position
	extra := bson.M{fmt.Sprintf("survey.questions.%d.options.%d", qi, optionIndex): bson.M{"$exists": true}}
	return s.castSurvey(ctx, postID, qi, domain.QuestionMultipleChoice, "votes",
		bson.M{"option_index": optionIndex, "user_id": userID}, extra)
}

func (s *Store) CastResponse(ctx context.Context, postID primitive.ObjectID, qi int, response string, userID primitive.ObjectID) (bool, error) {
	return s.castSurvey(ctx, postID, qi, domain.QuestionOpenEnded, "responses",
		bson.M{"response": response, "user_id": userID}, nil)
}

func (s *Store) CastRating(ctx context.Context, postID primitive.ObjectID, qi, rating int, userID primitive.ObjectID) (bool, error) {
	return s.castSurvey(ctx, postID, qi, domain.QuestionRating, "ratings",
		bson.M{"rating": rating, "user_id": userID}, nil)
}

// PurgeVoter strips userID from every ledger and returns the ids of the
// posts it touched. Poll counters are decremented in the same update that
// pulls the marker.
func (s *Store) PurgeVoter(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.posts.purge_voter", tracer.Tag("user_id", userID.Hex()))
	defer sp.Finish()

	pollFilter := bson.M{"type": domain.PostPoll, "poll.options.voted_by.user_id": userID}
	surveyFilter := bson.M{"type": domain.PostSurvey, "$or": bson.A{
		bson.M{"survey.questions.votes.user_id": userID},
		bson.M{"survey.questions.responses.user_id": userID},
		bson.M{"survey.questions.ratings.user_id": userID},
	}}

	cur, err := s.colPosts.Find(ctx, bson.M{"$or": bson.A{pollFilter, surveyFilter}},
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		sp.SetTag("error", err)
		return nil, fmt.Errorf("find voter posts: %w", err)
	}
	var rows []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		sp.SetTag("error", err)
		return nil, fmt.Errorf("find voter posts: %w", err)
	}
	ids := make([]primitive.ObjectID, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	if len(ids) == 0 {
		return ids, nil
	}

	_, err = s.colPosts.UpdateMany(ctx, pollFilter,
		bson.M{
			"$inc":  bson.M{"poll.options.$[opt].votes": -1},
			"$pull": bson.M{"poll.options.$[opt].voted_by": bson.M{"user_id": userID}},
		},
		options.Update().SetArrayFilters(options.ArrayFilters{
			Filters: []interface{}{bson.M{"opt.voted_by.user_id": userID}},
		}),
	)
	if err != nil {
		sp.SetTag("error", err)
		return ids, fmt.Errorf("purge poll votes: %w", err)
	}

	byUser := bson.M{"user_id": userID}
	_, err = s.colPosts.UpdateMany(ctx, surveyFilter,
		bson.M{"$pull": bson.M{
			"survey.questions.$[].votes":     byUser,
			"survey.questions.$[].responses": byUser,
			"survey.questions.$[].ratings":   byUser,
		}},
	)
	if err != nil {
		sp.SetTag("error", err)
		return ids, fmt.Errorf("purge survey answers: %w", err)
	}
	sp.SetTag("posts", len(ids))
	return ids, nil
}

// SweepStatuses recomputes the stored status of every poll and survey with
// one UpdateMany per (kind, status). Each filter skips documents already at
// the target status, so repeated sweeps only touch what actually changed.
func (s *Store) SweepStatuses(ctx context.Context, now time.Time, grace time.Duration) (int64, error) {
	sp, _ := tracer.StartSpanFromContext(ctx, "mongo.posts.sweep_statuses")
	defer sp.Finish()

	now = now.UTC()
	closedBefore := now.Add(-grace)
	var changed int64
	for _, kind := range []string{"poll", "survey"} {
		deadline, status := kind+".deadline", kind+".status"
		steps := []struct {
			window bson.M
			to     domain.Status
		}{
			{bson.M{"$gt": now}, domain.StatusUpcoming},
			{bson.M{"$lte": now, "$gt": closedBefore}, domain.StatusActive},
			{bson.M{"$lte": closedBefore}, domain.StatusPast},
		}
		for _, st := range steps {
			res, err := s.colPosts.UpdateMany(ctx,
				bson.M{"type": kind, deadline: st.window, status: bson.M{"$ne": st.to}},
				bson.M{"$set": bson.M{status: st.to}},
			)
			if err != nil {
				sp.SetTag("error", err)
				return changed, fmt.Errorf("sweep %s %s: %w", kind, st.to, err)
			}
			changed += res.ModifiedCount
		}
	}
	sp.SetTag("changed", changed)
	return changed, nil
}
