package voting

import (
	"context"
	"fmt"
	"strings"

	"github.com/JM-Mushraf/TownSquare-sub000/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (s *Service) CreatePost(ctx context.Context, in domain.NewPost) (*domain.Post, error) {
	p, err := domain.BuildPost(in, s.now(), s.Grace)
	if err != nil {
		return nil, err
	}
	if err := s.Posts.InsertPost(ctx, p); err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}
	return p, nil
}

// GetPost returns the post with its status recomputed for the current time.
func (s *Service) GetPost(ctx context.Context, id string) (*domain.Post, error) {
	postID, err := parsePostID(id)
	if err != nil {
		return nil, err
	}
	p, err := s.Posts.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	p.RefreshStatus(s.now(), s.Grace)
	return p, nil
}

// DeletePost removes a post. A non-empty actor must be the post's author;
// an empty actor means the caller is not authenticated at all (auth off).
func (s *Service) DeletePost(ctx context.Context, id, actor string) error {
	postID, err := parsePostID(id)
	if err != nil {
		return err
	}
	if actor != "" {
		p, err := s.Posts.GetPost(ctx, postID)
		if err != nil {
			return err
		}
		if !sameID(actor, p.CreatedBy) {
			return fmt.Errorf("%w: only the author can delete this post", domain.ErrForbidden)
		}
	}
	if err := s.Posts.DeletePost(ctx, postID); err != nil {
		return err
	}
	s.Cache.Invalidate(ctx, postID.Hex())
	return nil
}

type NewUser struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (s *Service) CreateUser(ctx context.Context, in NewUser) (*domain.User, error) {
	name := strings.TrimSpace(in.Username)
	if name == "" {
		return nil, fmt.Errorf("%w: username is required", domain.ErrValidation)
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email != "" && !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: email is not valid", domain.ErrValidation)
	}
	u := &domain.User{
		ID:        primitive.NewObjectID(),
		Username:  name,
		Email:     email,
		CreatedAt: s.now(),
	}
	if err := s.Users.InsertUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// DeleteUser removes the user's ledger entries from every post, then the
// user. The user record goes last so a failed call can be repeated. A
// non-empty actor may only delete itself.
func (s *Service) DeleteUser(ctx context.Context, id, actor string) (int64, error) {
	userID, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return 0, fmt.Errorf("%w: user %q", domain.ErrNotFound, id)
	}
	if actor != "" && !sameID(actor, userID) {
		return 0, fmt.Errorf("%w: users can only delete themselves", domain.ErrForbidden)
	}
	if _, err := s.Users.GetUser(ctx, userID); err != nil {
		return 0, err
	}
	touched, err := s.Posts.PurgeVoter(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("purge votes: %w", err)
	}
	for _, pid := range touched {
		s.Cache.Invalidate(ctx, pid.Hex())
	}
	n := int64(len(touched))
	if err := s.Users.DeleteUser(ctx, userID); err != nil {
		return n, err
	}
	return n, nil
}

func sameID(actor string, id primitive.ObjectID) bool {
	a, err := primitive.ObjectIDFromHex(strings.TrimSpace(actor))
	return err == nil && a == id
}
