package mail

import (
	"context"
	"errors"
	"fmt"

	"github.com/JM-Mushraf/TownSquare-sub000/internal/domain"
	"github.com/JM-Mushraf/TownSquare-sub000/internal/queue"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Sender delivers plain-text mail. The default implementation only logs;
// SMTP is wired by the deployment.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type LogSender struct{ Log *zap.Logger }

func (s LogSender) Send(_ context.Context, to, subject, body string) error {
	s.Log.Info("mail", zap.String("to", to), zap.String("subject", subject), zap.Int("bytes", len(body)))
	return nil
}

type UserLookup interface {
	GetUser(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
}

// Notifier tells a post owner that someone answered their poll or survey.
type Notifier struct {
	Users  UserLookup
	Sender Sender
}

func (n *Notifier) HandleVoteCast(ctx context.Context, body []byte) error {
	ev, err := queue.DecodeVoteCast(body)
	if err != nil {
		return fmt.Errorf("%w: %v", queue.ErrPoison, err)
	}
	if ev.OwnerID == ev.UserID {
		return nil
	}
	ownerID, err := primitive.ObjectIDFromHex(ev.OwnerID)
	if err != nil {
		return fmt.Errorf("%w: owner id %q", queue.ErrPoison, ev.OwnerID)
	}
	owner, err := n.Users.GetUser(ctx, ownerID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if owner.Email == "" {
		return nil
	}

	var subject string
	switch ev.PostType {
	case domain.PostSurvey:
		subject = fmt.Sprintf("New answer on your survey %q", ev.Title)
	default:
		subject = fmt.Sprintf("New vote on your poll %q", ev.Title)
	}
	text := fmt.Sprintf("Hi %s,\n\nSomeone just took part in %q. Open the post to see the latest results.\n", owner.Username, ev.Title)
	return n.Sender.Send(ctx, owner.Email, subject, text)
}
