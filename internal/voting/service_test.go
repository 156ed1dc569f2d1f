package voting_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JM-Mushraf/TownSquare-sub000/internal/domain"
	"github.com/JM-Mushraf/TownSquare-sub000/internal/voting"
	"github.com/JM-Mushraf/TownSquare-sub000/internal/voting/votingtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var today = time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)

type env struct {
	store *votingtest.Store
	cache *votingtest.MemoryCache
	svc   *voting.Service
	owner primitive.ObjectID
}

func newEnv(t *testing.T) *env {
	t.Helper()
	st := votingtest.NewStore()
	cache := votingtest.NewMemoryCache()
	svc := voting.NewService(st, st, cache, domain.GracePeriod)
	svc.Now = func() time.Time { return today }
	return &env{store: st, cache: cache, svc: svc, owner: st.Seed("owner")[0]}
}

func (e *env) poll(t *testing.T, options ...string) *domain.Post {
	t.Helper()
	in := make([]domain.OptionInput, len(options))
	for i, o := range options {
		in[i] = domain.OptionInput{Text: o}
	}
	p, err := e.svc.CreatePost(context.Background(), domain.NewPost{
		Type: domain.PostPoll, Title: "poll", CreatedBy: e.owner.Hex(),
		Poll: &domain.NewPoll{Question: "Best season?", Deadline: "2026-04-20", Options: in},
	})
	require.NoError(t, err)
	return p
}

func (e *env) survey(t *testing.T, qs ...domain.NewQuestion) *domain.Post {
	t.Helper()
	p, err := e.svc.CreatePost(context.Background(), domain.NewPost{
		Type: domain.PostSurvey, Title: "survey", CreatedBy: e.owner.Hex(),
		Survey: &domain.NewSurvey{Deadline: "2026-04-20", Questions: qs},
	})
	require.NoError(t, err)
	return p
}

func intp(v int) *int { return &v }

func TestPollVoteOncePerUser(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.poll(t, "Summer", "Winter")
	u1 := e.store.Seed("u1")[0]
	summer, winter := p.Poll.Options[0].ID.Hex(), p.Poll.Options[1].ID.Hex()

	_, err := e.svc.SubmitVote(ctx, voting.VoteRequest{PostID: p.ID.Hex(), UserID: u1.Hex(), Option: summer})
	require.NoError(t, err)

	_, err = e.svc.SubmitVote(ctx, voting.VoteRequest{PostID: p.ID.Hex(), UserID: u1.Hex(), Option: winter})
	require.ErrorIs(t, err, domain.ErrAlreadyVoted)

	res, err := e.svc.GetResults(ctx, p.ID.Hex())
	require.NoError(t, err)
	require.NotNil(t, res.Poll)
	assert.Equal(t, 1, res.Poll.TotalVotes)
	assert.Equal(t, 1, res.Poll.Options[0].Votes)
	assert.Equal(t, []string{"u1"}, res.Poll.Options[0].VotedBy)
	assert.Equal(t, 100, res.Poll.Options[0].Percentage)
	assert.Equal(t, 0, res.Poll.Options[1].Votes)

	stored, err := e.store.GetPost(ctx, p.ID)
	require.NoError(t, err)
	for _, o := range stored.Poll.Options {
		assert.Equal(t, o.Votes, len(o.VotedBy))
	}
}

func TestPollVoteRejections(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.poll(t, "a", "b")
	u := e.store.Seed("u")[0].Hex()

	_, err := e.svc.SubmitVote(ctx, voting.VoteRequest{PostID: primitive.NewObjectID().Hex(), UserID: u, Option: "0"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = e.svc.SubmitVote(ctx, voting.VoteRequest{PostID: "not-an-id", UserID: u, Option: "0"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = e.svc.SubmitVote(ctx, voting.VoteRequest{PostID: p.ID.Hex(), UserID: "bogus", Option: "0"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = e.svc.SubmitVote(ctx, voting.VoteRequest{PostID: p.ID.Hex(), UserID: u, Option: primitive.NewObjectID().Hex()})
	assert.ErrorIs(t, err, domain.ErrInvalidOption)

	_, err = e.svc.SubmitVote(ctx, voting.VoteRequest{PostID: p.ID.Hex(), UserID: u, Option: "7"})
	assert.ErrorIs(t, err, domain.ErrInvalidOption)

	general, err := e.svc.CreatePost(ctx, domain.NewPost{Type: domain.PostGeneral, Title: "hi", CreatedBy: e.owner.Hex()})
	require.NoError(t, err)
	_, err = e.svc.SubmitVote(ctx, voting.VoteRequest{PostID: general.ID.Hex(), UserID: u, Option: "0"})
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)
}

func TestVoteClosedAfterGrace(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.poll(t, "a", "b")
	u := e.store.Seed("u")[0].Hex()

	e.svc.Now = func() time.Time { return time.Date(2026, 4, 21, 23, 0, 0, 0, time.UTC) }
	_, err := e.svc.SubmitVote(ctx, voting.VoteRequest{PostID: p.ID.Hex(), UserID: u, Option: "0"})
	require.NoError(t, err, "still inside the grace window")

	e.svc.Now = func() time.Time { return time.Date(2026, 4, 22, 0, 0, 0, 0, time.UTC) }
	other := e.store.Seed("v")[0].Hex()
	_, err = e.svc.SubmitVote(ctx, voting.VoteRequest{PostID: p.ID.Hex(), UserID: other, Option: "0"})
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)
}

func TestSurveyOpenEndedResponses(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.survey(t, domain.NewQuestion{Question: "Ideas?", Type: domain.QuestionOpenEnded})
	u2 := e.store.Seed("u2")[0]

	_, err := e.svc.SubmitVote(ctx, voting.VoteRequest{PostID: p.ID.Hex(), UserID: u2.Hex(), Response: ""})
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = e.svc.SubmitVote(ctx, voting.VoteRequest{PostID: p.ID.Hex(), UserID: u2.Hex(), Response: "Great idea"})
	require.NoError(t, err)

	_, err = e.svc.SubmitVote(ctx, voting.VoteRequest{PostID: p.ID.Hex(), UserID: u2.Hex(), Response: "Again"})
	require.ErrorIs(t, err, domain.ErrAlreadyVoted)

	res, err := e.svc.GetResults(ctx, p.ID.Hex())
	require.NoError(t, err)
	q := res.Survey.Questions[0]
	require.NotNil(t, q.OpenResults)
	assert.Equal(t, 1, q.TotalResponses)
	assert.Equal(t, "Great idea", q.Responses[0].Response)
	assert.Equal(t, "u2", q.Responses[0].Username)
}

func TestSurveyRatingAverage(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.survey(t, domain.NewQuestion{Question: "How was it?", Type: domain.QuestionRating})
	users := e.store.Seed("a", "b", "c")

	for i, r := range []int{3, 5, 4} {
		_, err := e.svc.SubmitVote(ctx, voting.VoteRequest{PostID: p.ID.Hex(), UserID: users[i].Hex(), Rating: intp(r)})
		require.NoError(t, err)
	}

	res, err := e.svc.GetResults(ctx, p.ID.Hex())
	require.NoError(t, err)
	q := res.Survey.Questions[0]
	require.NotNil(t, q.RatingResults)
	assert.Equal(t, 3, q.TotalRatings)
	assert.InDelta(t, 4.0, q.AverageRating, 1e-9)
}

func TestRatingBounds(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.survey(t, domain.NewQuestion{Question: "Rate", Type: domain.QuestionRating})

	for _, r := range []int{0, 6} {
		u := e.store.Seed("x" + string(rune('0'+r)))[0]
		_, err := e.svc.SubmitVote(ctx, voting.VoteRequest{PostID: p.ID.Hex(), UserID: u.Hex(), Rating: intp(r)})
		assert.ErrorIs(t, err, domain.ErrValidation, "rating %d", r)
	}
	u := e.store.Seed("missing")[0]
	_, err := e.svc.SubmitVote(ctx, voting.VoteRequest{PostID: p.ID.Hex(), UserID: u.Hex()})
	assert.ErrorIs(t, err, domain.ErrValidation)

	for r := domain.MinRating; r <= domain.MaxRating; r++ {
		u := primitive.NewObjectID()
		_, err := e.svc.SubmitVote(ctx, voting.VoteRequest{PostID: p.ID.Hex(), UserID: u.Hex(), Rating: intp(r)})
		assert.NoError(t, err, "rating %d", r)
	}
}

func TestSurveyMultipleChoice(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.survey(t,
		domain.NewQuestion{Question: "Colour", Type: domain.QuestionMultipleChoice,
			Options: []domain.OptionInput{{Text: "Red"}, {Text: "Blue"}}},
		domain.NewQuestion{Question: "Why?", Type: domain.QuestionOpenEnded},
	)
	users := e.store.Seed("a", "b")
	blue := p.Survey.Questions[0].Options[1].ID.Hex()

	_, err := e.svc.SubmitVote(ctx, voting.VoteRequest{PostID: p.ID.Hex(), UserID: users[0].Hex(), Option: blue})
	require.NoError(t, err)
	_, err = e.svc.SubmitVote(ctx, voting.VoteRequest{PostID: p.ID.Hex(), UserID: users[1].Hex(), Option: "0"})
	require.NoError(t, err)
	_, err = e.svc.SubmitVote(ctx, voting.VoteRequest{PostID: p.ID.Hex(), UserID: users[1].Hex(), Option: blue})
	require.ErrorIs(t, err, domain.ErrAlreadyVoted)
	_, err = e.svc.SubmitVote(ctx, voting.VoteRequest{PostID: p.ID.Hex(), UserID: users[0].Hex(), Option: "9"})
	require.ErrorIs(t, err, domain.ErrInvalidOption)

	// second question is addressed explicitly and keeps its own ledger
	_, err = e.svc.SubmitVote(ctx, voting.VoteRequest{PostID: p.ID.Hex(), UserID: users[1].Hex(), Response: "because", QuestionIndex: 1})
	require.NoError(t, err)
	_, err = e.svc.SubmitVote(ctx, voting.VoteRequest{PostID: p.ID.Hex(), UserID: users[1].Hex(), Response: "x", QuestionIndex: 5})
	require.ErrorIs(t, err, domain.ErrNotFound)

	res, err := e.svc.GetResults(ctx, p.ID.Hex())
	require.NoError(t, err)
	mc := res.Survey.Questions[0]
	require.NotNil(t, mc.ChoiceResults)
	assert.Equal(t, 2, mc.TotalVotes)
	assert.Equal(t, []string{"b"}, mc.Options[0].VotedBy)
	assert.Equal(t, []string{"a"}, mc.Options[1].VotedBy)
	assert.Equal(t, 50, mc.Options[0].Percentage)
	assert.Equal(t, 1, res.Survey.Questions[1].TotalResponses)
}

func TestZeroVoteResults(t *testing.T) {
	e := newEnv(t)
	p := e.poll(t, "a", "b", "c")

	res, err := e.svc.GetResults(context.Background(), p.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Poll.TotalVotes)
	for _, o := range res.Poll.Options {
		assert.Equal(t, 0, o.Percentage)
		assert.Empty(t, o.VotedBy)
	}
	assert.Equal(t, 0, voting.Percentage(0, 0))
	assert.Equal(t, 33, voting.Percentage(1, 3))
	assert.Equal(t, 67, voting.Percentage(2, 3))
}

func TestUnknownUsernameFallback(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.poll(t, "a", "b")
	ghost := primitive.NewObjectID()

	_, err := e.svc.SubmitVote(ctx, voting.VoteRequest{PostID: p.ID.Hex(), UserID: ghost.Hex(), Option: "1"})
	require.NoError(t, err)

	res, err := e.svc.GetResults(ctx, p.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, []string{domain.UnknownUsername}, res.Poll.Options[1].VotedBy)
}

func TestConcurrentVotesKeepCounts(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.poll(t, "new", "old")
	opt := p.Poll.Options[0].ID.Hex()

	const voters = 50
	ids := make([]string, voters)
	for i := range ids {
		ids[i] = primitive.NewObjectID().Hex()
	}

	var wg sync.WaitGroup
	errs := make(chan error, voters*2)
	for _, id := range ids {
		for k := 0; k < 2; k++ {
			wg.Add(1)
			go func(uid string) {
				defer wg.Done()
				_, err := e.svc.SubmitVote(ctx, voting.VoteRequest{PostID: p.ID.Hex(), UserID: uid, Option: opt})
				errs <- err
			}(id)
		}
	}
	wg.Wait()
	close(errs)

	ok, dup := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrAlreadyVoted):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, voters, ok)
	assert.Equal(t, voters, dup)

	stored, err := e.store.GetPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, voters, stored.Poll.Options[0].Votes)
	assert.Len(t, stored.Poll.Options[0].VotedBy, voters)
}

func TestResultsCacheInvalidatedByVote(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.poll(t, "a", "b")

	_, err := e.svc.GetResults(ctx, p.ID.Hex())
	require.NoError(t, err)
	_, cached := e.cache.Get(ctx, p.ID.Hex())
	require.True(t, cached)

	_, err = e.svc.SubmitVote(ctx, voting.VoteRequest{PostID: p.ID.Hex(), UserID: primitive.NewObjectID().Hex(), Option: "0"})
	require.NoError(t, err)
	_, cached = e.cache.Get(ctx, p.ID.Hex())
	assert.False(t, cached)

	res, err := e.svc.GetResults(ctx, p.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Poll.TotalVotes)
}

func TestStoreFailureIsNotClientError(t *testing.T) {
	e := newEnv(t)
	p := e.poll(t, "a", "b")
	e.store.Err = errors.New("connection reset")

	_, err := e.svc.SubmitVote(context.Background(), voting.VoteRequest{PostID: p.ID.Hex(), UserID: primitive.NewObjectID().Hex(), Option: "0"})
	require.Error(t, err)
	for _, target := range []error{domain.ErrNotFound, domain.ErrValidation, domain.ErrAlreadyVoted, domain.ErrInvalidOption, domain.ErrInvalidOperation} {
		assert.NotErrorIs(t, err, target)
	}
}

func TestDeleteUserPurgesLedger(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	poll := e.poll(t, "a", "b")
	sv := e.survey(t, domain.NewQuestion{Question: "Rate", Type: domain.QuestionRating})
	users := e.store.Seed("gone", "stays")

	for _, u := range users {
		_, err := e.svc.SubmitVote(ctx, voting.VoteRequest{PostID: poll.ID.Hex(), UserID: u.Hex(), Option: "0"})
		require.NoError(t, err)
		_, err = e.svc.SubmitVote(ctx, voting.VoteRequest{PostID: sv.ID.Hex(), UserID: u.Hex(), Rating: intp(4)})
		require.NoError(t, err)
	}

	before, err := e.svc.GetResults(ctx, poll.ID.Hex())
	require.NoError(t, err)
	require.Equal(t, 2, before.Poll.TotalVotes)

	n, err := e.svc.DeleteUser(ctx, users[0].Hex(), "")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	stored, err := e.store.GetPost(ctx, poll.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Poll.Options[0].Votes)
	assert.Len(t, stored.Poll.Options[0].VotedBy, 1)

	// cached results must not keep showing the purged vote
	after, err := e.svc.GetResults(ctx, poll.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 1, after.Poll.TotalVotes)
	assert.Equal(t, []string{"stays"}, after.Poll.Options[0].VotedBy)

	_, err = e.svc.DeleteUser(ctx, users[0].Hex(), "")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// the purged user may vote again if re-registered under the same id
	_, err = e.svc.SubmitVote(ctx, voting.VoteRequest{PostID: poll.ID.Hex(), UserID: users[0].Hex(), Option: "1"})
	assert.NoError(t, err)
}

func TestDeleteRequiresOwnership(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.poll(t, "a", "b")
	users := e.store.Seed("victim", "intruder")
	victim, intruder := users[0], users[1]

	_, err := e.svc.SubmitVote(ctx, voting.VoteRequest{PostID: p.ID.Hex(), UserID: victim.Hex(), Option: "0"})
	require.NoError(t, err)

	_, err = e.svc.DeleteUser(ctx, victim.Hex(), intruder.Hex())
	assert.ErrorIs(t, err, domain.ErrForbidden)
	err = e.svc.DeletePost(ctx, p.ID.Hex(), intruder.Hex())
	assert.ErrorIs(t, err, domain.ErrForbidden)

	stored, err := e.store.GetPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Poll.Options[0].Votes)

	// ids compare as ObjectIDs, not strings
	_, err = e.svc.DeleteUser(ctx, victim.Hex(), strings.ToUpper(victim.Hex()))
	assert.NoError(t, err)
	assert.NoError(t, e.svc.DeletePost(ctx, p.ID.Hex(), e.owner.Hex()))
	_, err = e.store.GetPost(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// lateCache runs hook right before the first Set, imitating a vote that
// lands between a results read and its cache write.
type lateCache struct {
	*votingtest.MemoryCache
	once sync.Once
	hook func()
}

func (c *lateCache) Set(ctx context.Context, k string, version int64, b []byte) {
	c.once.Do(c.hook)
	c.MemoryCache.Set(ctx, k, version, b)
}

func TestResultsReadRacingVoteIsNotCached(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.poll(t, "a", "b")
	u := e.store.Seed("late")[0]

	cache := &lateCache{MemoryCache: votingtest.NewMemoryCache()}
	e.svc.Cache = cache
	cache.hook = func() {
		_, err := e.svc.SubmitVote(ctx, voting.VoteRequest{PostID: p.ID.Hex(), UserID: u.Hex(), Option: "1"})
		require.NoError(t, err)
	}

	stale, err := e.svc.GetResults(ctx, p.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 0, stale.Poll.TotalVotes)
	_, cached := cache.Get(ctx, p.ID.Hex())
	assert.False(t, cached)

	fresh, err := e.svc.GetResults(ctx, p.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.Poll.TotalVotes)
}

func TestCreateUserConflict(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.svc.CreateUser(ctx, voting.NewUser{Username: "maya", Email: "maya@example.com"})
	require.NoError(t, err)
	_, err = e.svc.CreateUser(ctx, voting.NewUser{Username: "maya"})
	assert.ErrorIs(t, err, domain.ErrConflict)
	_, err = e.svc.CreateUser(ctx, voting.NewUser{Username: " "})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = e.svc.CreateUser(ctx, voting.NewUser{Username: "x", Email: "nope"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestGetPostRefreshesStatus(t *testing.T) {
	e := newEnv(t)
	p := e.poll(t, "a", "b")
	require.Equal(t, domain.StatusUpcoming, p.Poll.Status)

	e.svc.Now = func() time.Time { return time.Date(2026, 4, 20, 8, 0, 0, 0, time.UTC) }
	got, err := e.svc.GetPost(context.Background(), p.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, got.Poll.Status)
}
