package voting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JM-Mushraf/TownSquare-sub000/internal/domain"
	"github.com/JM-Mushraf/TownSquare-sub000/internal/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Service struct {
	Posts PostRepository
	Users UserRepository
	Cache ResultsCache
	Grace time.Duration
	Now   func() time.Time
}

func NewService(posts PostRepository, users UserRepository, cache ResultsCache, grace time.Duration) *Service {
	if cache == nil {
		cache = nopCache{}
	}
	if grace <= 0 {
		grace = domain.GracePeriod
	}
	return &Service{Posts: posts, Users: users, Cache: cache, Grace: grace, Now: time.Now}
}

func (s *Service) now() time.Time { return s.Now().UTC() }

func parsePostID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: post %q", domain.ErrNotFound, id)
	}
	return oid, nil
}

func parseUserID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: userId is not a valid id", domain.ErrValidation)
	}
	return oid, nil
}

// loadOpen loads a votable post and refuses it once voting has closed.
func (s *Service) loadOpen(ctx context.Context, postID primitive.ObjectID) (*domain.Post, error) {
	p, err := s.Posts.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !p.Type.Votable() {
		return nil, fmt.Errorf("%w: %s posts do not accept votes", domain.ErrInvalidOperation, p.Type)
	}
	if p.RefreshStatus(s.now(), s.Grace) == domain.StatusPast {
		return nil, fmt.Errorf("%w: voting is closed", domain.ErrInvalidOperation)
	}
	return p, nil
}

// SubmitVote records one vote, response or rating for req.UserID. A user
// gets one entry per poll and one per survey question; a repeated
// submission fails with domain.ErrAlreadyVoted and changes nothing.
func (s *Service) SubmitVote(ctx context.Context, req VoteRequest) (*domain.Post, error) {
	postID, err := parsePostID(req.PostID)
	if err != nil {
		return nil, err
	}
	userID, err := parseUserID(req.UserID)
	if err != nil {
		return nil, err
	}
	p, err := s.loadOpen(ctx, postID)
	if err != nil {
		return nil, err
	}

	switch p.Type {
	case domain.PostPoll:
		err = s.votePoll(ctx, p, userID, req)
	case domain.PostSurvey:
		err = s.voteSurvey(ctx, p, userID, req)
	}
	if err != nil {
		if !isClientError(err) {
			log.Ctx(ctx).Error("vote failed",
				zap.String("post_id", req.PostID), zap.String("user_id", req.UserID), zap.Error(err))
		}
		return nil, err
	}
	s.Cache.Invalidate(ctx, postID.Hex())
	return p, nil
}

func (s *Service) votePoll(ctx context.Context, p *domain.Post, userID primitive.ObjectID, req VoteRequest) error {
	if p.Poll == nil {
		return fmt.Errorf("%w: poll details missing", domain.ErrNotFound)
	}
	optID, err := domain.ResolvePollOption(p.Poll, req.Option)
	if err != nil {
		return err
	}
	if p.Poll.HasVoted(userID) {
		return domain.ErrAlreadyVoted
	}
	applied, err := s.Posts.CastPollVote(ctx, p.ID, optID, userID)
	if err != nil {
		return fmt.Errorf("cast poll vote: %w", err)
	}
	if applied {
		return nil
	}
	// Lost a race or the post changed under us; find out which.
	fresh, err := s.Posts.GetPost(ctx, p.ID)
	if err != nil {
		return err
	}
	if fresh.Poll != nil && fresh.Poll.HasVoted(userID) {
		return domain.ErrAlreadyVoted
	}
	return domain.ErrInvalidOption
}

func (s *Service) voteSurvey(ctx context.Context, p *domain.Post, userID primitive.ObjectID, req VoteRequest) error {
	if p.Survey == nil {
		return fmt.Errorf("%w: survey details missing", domain.ErrNotFound)
	}
	qi := req.QuestionIndex
	if qi < 0 || qi >= len(p.Survey.Questions) {
		return fmt.Errorf("%w: question %d", domain.ErrNotFound, qi)
	}
	q := &p.Survey.Questions[qi]

	var cast func() (bool, error)
	switch q.Type {
	case domain.QuestionMultipleChoice:
		idx, err := domain.ResolveChoice(q, req.Option)
		if err != nil {
			return err
		}
		cast = func() (bool, error) { return s.Posts.CastChoiceVote(ctx, p.ID, qi, idx, userID) }
	case domain.QuestionOpenEnded:
		resp := strings.TrimSpace(req.Response)
		if resp == "" {
			return fmt.Errorf("%w: response must not be empty", domain.ErrValidation)
		}
		cast = func() (bool, error) { return s.Posts.CastResponse(ctx, p.ID, qi, resp, userID) }
	case domain.QuestionRating:
		if req.Rating == nil {
			return fmt.Errorf("%w: rating is required", domain.ErrValidation)
		}
		r := *req.Rating
		if r < domain.MinRating || r > domain.MaxRating {
			return fmt.Errorf("%w: rating must be between %d and %d", domain.ErrValidation, domain.MinRating, domain.MaxRating)
		}
		cast = func() (bool, error) { return s.Posts.CastRating(ctx, p.ID, qi, r, userID) }
	default:
		return fmt.Errorf("%w: unsupported question type %q", domain.ErrInvalidOperation, q.Type)
	}

	if q.Answered(userID) {
		return domain.ErrAlreadyVoted
	}
	applied, err := cast()
	if err != nil {
		return fmt.Errorf("cast survey answer: %w", err)
	}
	if applied {
		return nil
	}
	fresh, err := s.Posts.GetPost(ctx, p.ID)
	if err != nil {
		return err
	}
	if fresh.Survey != nil && qi < len(fresh.Survey.Questions) && fresh.Survey.Questions[qi].Answered(userID) {
		return domain.ErrAlreadyVoted
	}
	return fmt.Errorf("%w: question %d", domain.ErrNotFound, qi)
}

func isClientError(err error) bool {
	for _, target := range []error{
		domain.ErrNotFound, domain.ErrValidation, domain.ErrInvalidOption,
		domain.ErrAlreadyVoted, domain.ErrInvalidOperation, domain.ErrConflict,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
