package voting

import (
	"context"
	"time"

	"github.com/JM-Mushraf/TownSquare-sub000/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PostRepository persists posts. The Cast* methods are single conditional
// writes: they append the ledger entry (and bump the poll counter) only when
// the voter has no entry yet, and report whether the write was applied.
type PostRepository interface {
	GetPost(ctx context.Context, id primitive.ObjectID) (*domain.Post, error)
	InsertPost(ctx context.Context, p *domain.Post) error
	DeletePost(ctx context.Context, id primitive.ObjectID) error

	CastPollVote(ctx context.Context, postID, optionID, userID primitive.ObjectID) (bool, error)
	CastChoiceVote(ctx context.Context, postID primitive.ObjectID, question, optionIndex int, userID primitive.ObjectID) (bool, error)
	CastResponse(ctx context.Context, postID primitive.ObjectID, question int, response string, userID primitive.ObjectID) (bool, error)
	CastRating(ctx context.Context, postID primitive.ObjectID, question, rating int, userID primitive.ObjectID) (bool, error)

	// PurgeVoter removes every ledger entry of userID and returns the ids of the posts touched.
	PurgeVoter(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error)
	// SweepStatuses rewrites stored status from the deadlines and returns the number of posts changed.
	SweepStatuses(ctx context.Context, now time.Time, grace time.Duration) (int64, error)
}

type UserRepository interface {
	InsertUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	DeleteUser(ctx context.Context, id primitive.ObjectID) error
	// FindUsersByIDs returns the users that exist; unknown ids are simply absent from the map.
	FindUsersByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]domain.User, error)
}

// ResultsCache holds rendered results per post. Implementations swallow
// their own failures; a miss is always safe.
//
// Every Invalidate bumps a per-post version. Readers take Version before
// loading the post and hand it back to Set, which drops the write when the
// version moved in between, so a read racing a vote cannot cache the
// pre-vote ledger. A negative version means "unknown" and is never stored.
type ResultsCache interface {
	Get(ctx context.Context, postID string) ([]byte, bool)
	Version(ctx context.Context, postID string) int64
	Set(ctx context.Context, postID string, version int64, b []byte)
	Invalidate(ctx context.Context, postID string)
}

type nopCache struct{}

func (nopCache) Get(context.Context, string) ([]byte, bool) { return nil, false }
func (nopCache) Version(context.Context, string) int64      { return -1 }
func (nopCache) Set(context.Context, string, int64, []byte) {}
func (nopCache) Invalidate(context.Context, string)         {}

// VoteRequest is the type-dependent vote payload. Option is used by polls
// and multiple-choice questions, Response by open-ended questions and
// Rating by rating questions.
type VoteRequest struct {
	PostID        string
	UserID        string
	Option        string
	Response      string
	Rating        *int
	QuestionIndex int
}
