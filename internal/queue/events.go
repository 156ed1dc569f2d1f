package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/JM-Mushraf/TownSquare-sub000/internal/domain"
)

const KeyVoteCast = "vote.cast"

// VoteCast is emitted after a vote, response or rating has been stored.
type VoteCast struct {
	PostID        string          `json:"post_id"`
	PostType      domain.PostType `json:"post_type"`
	Title         string          `json:"title"`
	OwnerID       string          `json:"owner_id"`
	UserID        string          `json:"user_id"`
	QuestionIndex int             `json:"question_index"`
	At            time.Time       `json:"at"`
}

func NewVoteCast(p *domain.Post, userID string, questionIndex int, at time.Time) VoteCast {
	if p.Type != domain.PostSurvey {
		questionIndex = 0
	}
	return VoteCast{
		PostID:        p.ID.Hex(),
		PostType:      p.Type,
		Title:         p.Title,
		OwnerID:       p.CreatedBy.Hex(),
		UserID:        userID,
		QuestionIndex: questionIndex,
		At:            at.UTC(),
	}
}

// Headers lets subscribers route on the post without decoding the body.
func (e VoteCast) Headers() map[string]any {
	return map[string]any{
		"post_id":   e.PostID,
		"post_type": string(e.PostType),
		"owner_id":  e.OwnerID,
	}
}

func DecodeVoteCast(b []byte) (VoteCast, error) {
	var ev VoteCast
	if err := json.Unmarshal(b, &ev); err != nil {
		return ev, fmt.Errorf("decode vote.cast: %w", err)
	}
	if ev.PostID == "" || ev.OwnerID == "" {
		return ev, fmt.Errorf("decode vote.cast: missing post or owner id")
	}
	return ev, nil
}
