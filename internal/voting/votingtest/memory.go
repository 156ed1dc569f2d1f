// Package votingtest provides an in-memory implementation of the voting
// repositories with the same conditional-write semantics as the Mongo store.
package votingtest

import (
	"context"
	"sync"
	"time"

	"github.com/JM-Mushraf/TownSquare-sub000/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Store struct {
	mu    sync.Mutex
	posts map[primitive.ObjectID]*domain.Post
	users map[primitive.ObjectID]domain.User

	// Err, when set, is returned by every call.
	Err error
}

func NewStore() *Store {
	return &Store{
		posts: map[primitive.ObjectID]*domain.Post{},
		users: map[primitive.ObjectID]domain.User{},
	}
}

func clonePost(p *domain.Post) *domain.Post {
	c := *p
	if p.Poll != nil {
		poll := *p.Poll
		poll.Options = make([]domain.PollOption, len(p.Poll.Options))
		for i, o := range p.Poll.Options {
			o.VotedBy = append([]domain.VoterRef(nil), o.VotedBy...)
			poll.Options[i] = o
		}
		c.Poll = &poll
	}
	if p.Survey != nil {
		sv := *p.Survey
		sv.Questions = make([]domain.Question, len(p.Survey.Questions))
		for i, q := range p.Survey.Questions {
			q.Options = append([]domain.Choice(nil), q.Options...)
			q.Votes = append([]domain.ChoiceVote(nil), q.Votes...)
			q.Responses = append([]domain.OpenResponse(nil), q.Responses...)
			q.Ratings = append([]domain.RatingResponse(nil), q.Ratings...)
			sv.Questions[i] = q
		}
		c.Survey = &sv
	}
	return &c
}

func (s *Store) GetPost(_ context.Context, id primitive.ObjectID) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	p, ok := s.posts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clonePost(p), nil
}

func (s *Store) InsertPost(_ context.Context, p *domain.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	s.posts[p.ID] = clonePost(p)
	return nil
}

func (s *Store) DeletePost(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.posts[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.posts, id)
	return nil
}

func (s *Store) CastPollVote(_ context.Context, postID, optionID, userID primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	p, ok := s.posts[postID]
	if !ok || p.Type != domain.PostPoll || p.Poll == nil || p.Poll.HasVoted(userID) {
		return false, nil
	}
	i, ok := p.Poll.Option(optionID)
	if !ok {
		return false, nil
	}
	o := &p.Poll.Options[i]
	o.Votes++
	o.VotedBy = append(o.VotedBy, domain.VoterRef{UserID: userID})
	return true, nil
}

func (s *Store) question(postID primitive.ObjectID, qi int, kind domain.QuestionType, userID primitive.ObjectID) *domain.Question {
	p, ok := s.posts[postID]
	if !ok || p.Type != domain.PostSurvey || p.Survey == nil || qi < 0 || qi >= len(p.Survey.Questions) {
		return nil
	}
	q := &p.Survey.Questions[qi]
	if q.Type != kind || q.Answered(userID) {
		return nil
	}
	return q
}

func (s *Store) CastChoiceVote(_ context.Context, postID primitive.ObjectID, qi, optionIndex int, userID primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	q := s.question(postID, qi, domain.QuestionMultipleChoice, userID)
	if q == nil {
		return false, nil
	}
	q.Votes = append(q.Votes, domain.ChoiceVote{OptionIndex: optionIndex, UserID: userID})
	return true, nil
}

func (s *Store) CastResponse(_ context.Context, postID primitive.ObjectID, qi int, response string, userID primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	q := s.question(postID, qi, domain.QuestionOpenEnded, userID)
	if q == nil {
		return false, nil
	}
	q.Responses = append(q.Responses, domain.OpenResponse{Response: response, UserID: userID})
	return true, nil
}

func (s *Store) CastRating(_ context.Context, postID primitive.ObjectID, qi, rating int, userID primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	q := s.question(postID, qi, domain.QuestionRating, userID)
	if q == nil {
		return false, nil
	}
	q.Ratings = append(q.Ratings, domain.RatingResponse{Rating: rating, UserID: userID})
	return true, nil
}

func (s *Store) PurgeVoter(_ context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	touchedIDs := []primitive.ObjectID{}
	for _, p := range s.posts {
		touched := false
		if p.Poll != nil {
			for i := range p.Poll.Options {
				o := &p.Poll.Options[i]
				kept := o.VotedBy[:0]
				for _, v := range o.VotedBy {
					if v.UserID != userID {
						kept = append(kept, v)
					}
				}
				if len(kept) != len(o.VotedBy) {
					touched = true
				}
				o.Votes -= len(o.VotedBy) - len(kept)
				o.VotedBy = kept
			}
		}
		if p.Survey != nil {
			for i := range p.Survey.Questions {
				q := &p.Survey.Questions[i]
				before := len(q.Votes) + len(q.Responses) + len(q.Ratings)
				q.Votes = filter(q.Votes, func(v domain.ChoiceVote) bool { return v.UserID != userID })
				q.Responses = filter(q.Responses, func(r domain.OpenResponse) bool { return r.UserID != userID })
				q.Ratings = filter(q.Ratings, func(r domain.RatingResponse) bool { return r.UserID != userID })
				if len(q.Votes)+len(q.Responses)+len(q.Ratings) != before {
					touched = true
				}
			}
		}
		if touched {
			touchedIDs = append(touchedIDs, p.ID)
		}
	}
	return touchedIDs, nil
}

func filter[T any](in []T, keep func(T) bool) []T {
	out := in[:0]
	for _, v := range in {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

func (s *Store) SweepStatuses(_ context.Context, now time.Time, grace time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	var n int64
	for _, p := range s.posts {
		var before domain.Status
		switch {
		case p.Poll != nil:
			before = p.Poll.Status
		case p.Survey != nil:
			before = p.Survey.Status
		default:
			continue
		}
		if p.RefreshStatus(now, grace) != before {
			n++
		}
	}
	return n, nil
}

func (s *Store) InsertUser(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	for _, existing := range s.users {
		if existing.Username == u.Username {
			return domain.ErrConflict
		}
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	s.users[u.ID] = *u
	return nil
}

func (s *Store) GetUser(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (s *Store) DeleteUser(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.users[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *Store) FindUsersByIDs(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := make(map[primitive.ObjectID]domain.User, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

// Seed stores users with the given usernames and returns their ids in order.
func (s *Store) Seed(names ...string) []primitive.ObjectID {
	ids := make([]primitive.ObjectID, len(names))
	for i, n := range names {
		u := domain.User{ID: primitive.NewObjectID(), Username: n}
		_ = s.InsertUser(context.Background(), &u)
		ids[i] = u.ID
	}
	return ids
}

// MemoryCache is a map-backed results cache.
type MemoryCache struct {
	mu  sync.Mutex
	m   map[string][]byte
	ver map[string]int64
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{m: map[string][]byte{}, ver: map[string]int64{}}
}

func (c *MemoryCache) Get(_ context.Context, k string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.m[k]
	return b, ok
}

func (c *MemoryCache) Version(_ context.Context, k string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ver[k]
}

func (c *MemoryCache) Set(_ context.Context, k string, version int64, b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if version < 0 || c.ver[k] != version {
		return
	}
	c.m[k] = b
}

func (c *MemoryCache) Invalidate(_ context.Context, k string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ver[k]++
	delete(c.m, k)
}
