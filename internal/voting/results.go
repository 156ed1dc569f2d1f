package voting

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/JM-Mushraf/TownSquare-sub000/internal/domain"
	"github.com/JM-Mushraf/TownSquare-sub000/internal/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Results struct {
	Poll   *PollResults   `json:"poll,omitempty"`
	Survey *SurveyResults `json:"survey,omitempty"`
}

type PollResults struct {
	Question   string         `json:"question"`
	Status     domain.Status  `json:"status"`
	Deadline   time.Time      `json:"deadline"`
	Options    []OptionResult `json:"options"`
	TotalVotes int            `json:"totalVotes"`
}

type OptionResult struct {
	ID         string   `json:"id"`
	Text       string   `json:"text"`
	Votes      int      `json:"votes"`
	VotedBy    []string `json:"votedBy"`
	Percentage int      `json:"percentage"`
}

type SurveyResults struct {
	Status    domain.Status    `json:"status"`
	Deadline  time.Time        `json:"deadline"`
	Questions []QuestionResult `json:"questions"`
}

// QuestionResult carries exactly one of the embedded result kinds, chosen by Type.
type QuestionResult struct {
	Question string              `json:"question"`
	Type     domain.QuestionType `json:"type"`
	*ChoiceResults
	*OpenResults
	*RatingResults
}

type ChoiceResults struct {
	Options    []OptionResult `json:"options"`
	TotalVotes int            `json:"totalVotes"`
}

type OpenResults struct {
	Responses      []ResponseResult `json:"responses"`
	TotalResponses int              `json:"totalResponses"`
}

type ResponseResult struct {
	Response string `json:"response"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type RatingResults struct {
	Ratings       []RatingResult `json:"ratings"`
	AverageRating float64        `json:"averageRating"`
	TotalRatings  int            `json:"totalRatings"`
}

type RatingResult struct {
	Rating   int    `json:"rating"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// Percentage is round(votes/total*100), and 0 when nobody has voted.
func Percentage(votes, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(votes) / float64(total) * 100))
}

// GetResults aggregates the vote ledger of a poll or survey.
func (s *Service) GetResults(ctx context.Context, id string) (*Results, error) {
	postID, err := parsePostID(id)
	if err != nil {
		return nil, err
	}
	if b, ok := s.Cache.Get(ctx, postID.Hex()); ok {
		var r Results
		if err := json.Unmarshal(b, &r); err == nil {
			return &r, nil
		}
	}
	ver := s.Cache.Version(ctx, postID.Hex())

	p, err := s.Posts.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !p.Type.Votable() {
		return nil, fmt.Errorf("%w: %s posts have no results", domain.ErrInvalidOperation, p.Type)
	}
	p.RefreshStatus(s.now(), s.Grace)

	names, err := s.usernames(ctx, p)
	if err != nil {
		return nil, err
	}

	var r Results
	switch {
	case p.Type == domain.PostPoll && p.Poll != nil:
		r.Poll = pollResults(p.Poll, names)
	case p.Type == domain.PostSurvey && p.Survey != nil:
		r.Survey = surveyResults(p.Survey, names)
	default:
		return nil, fmt.Errorf("%w: %s details missing", domain.ErrNotFound, p.Type)
	}

	if b, err := json.Marshal(&r); err == nil {
		s.Cache.Set(ctx, postID.Hex(), ver, b)
	}
	return &r, nil
}

// usernames resolves every user referenced by the ledger with one lookup.
func (s *Service) usernames(ctx context.Context, p *domain.Post) (func(primitive.ObjectID) string, error) {
	seen := map[primitive.ObjectID]struct{}{}
	add := func(id primitive.ObjectID) { seen[id] = struct{}{} }
	if p.Poll != nil {
		for _, o := range p.Poll.Options {
			for _, v := range o.VotedBy {
				add(v.UserID)
			}
		}
	}
	if p.Survey != nil {
		for _, q := range p.Survey.Questions {
			for _, v := range q.Votes {
				add(v.UserID)
			}
			for _, r := range q.Responses {
				add(r.UserID)
			}
			for _, r := range q.Ratings {
				add(r.UserID)
			}
		}
	}

	users := map[primitive.ObjectID]domain.User{}
	if len(seen) > 0 {
		ids := make([]primitive.ObjectID, 0, len(seen))
		for id := range seen {
			ids = append(ids, id)
		}
		var err error
		if users, err = s.Users.FindUsersByIDs(ctx, ids); err != nil {
			log.Ctx(ctx).Error("resolve usernames", zap.String("post_id", p.ID.Hex()), zap.Error(err))
			return nil, fmt.Errorf("resolve usernames: %w", err)
		}
	}
	return func(id primitive.ObjectID) string {
		if u, ok := users[id]; ok && u.Username != "" {
			return u.Username
		}
		return domain.UnknownUsername
	}, nil
}

func pollResults(p *domain.Poll, name func(primitive.ObjectID) string) *PollResults {
	total := 0
	for _, o := range p.Options {
		total += o.Votes
	}
	out := &PollResults{
		Question:   p.Question,
		Status:     p.Status,
		Deadline:   p.Deadline,
		Options:    make([]OptionResult, 0, len(p.Options)),
		TotalVotes: total,
	}
	for _, o := range p.Options {
		voters := make([]string, 0, len(o.VotedBy))
		for _, v := range o.VotedBy {
			voters = append(voters, name(v.UserID))
		}
		out.Options = append(out.Options, OptionResult{
			ID:         o.ID.Hex(),
			Text:       o.Text,
			Votes:      o.Votes,
			VotedBy:    voters,
			Percentage: Percentage(o.Votes, total),
		})
	}
	return out
}

func surveyResults(sv *domain.Survey, name func(primitive.ObjectID) string) *SurveyResults {
	out := &SurveyResults{
		Status:    sv.Status,
		Deadline:  sv.Deadline,
		Questions: make([]QuestionResult, 0, len(sv.Questions)),
	}
	for i := range sv.Questions {
		q := &sv.Questions[i]
		qr := QuestionResult{Question: q.Question, Type: q.Type}
		switch q.Type {
		case domain.QuestionMultipleChoice:
			qr.ChoiceResults = choiceResults(q, name)
		case domain.QuestionOpenEnded:
			qr.OpenResults = openResults(q, name)
		case domain.QuestionRating:
			qr.RatingResults = ratingResults(q, name)
		}
		out.Questions = append(out.Questions, qr)
	}
	return out
}

func choiceResults(q *domain.Question, name func(primitive.ObjectID) string) *ChoiceResults {
	opts := make([]OptionResult, len(q.Options))
	for i, c := range q.Options {
		opts[i] = OptionResult{ID: c.ID.Hex(), Text: c.Text, VotedBy: []string{}}
	}
	total := 0
	for _, v := range q.Votes {
		if v.OptionIndex < 0 || v.OptionIndex >= len(opts) {
			continue
		}
		opts[v.OptionIndex].Votes++
		opts[v.OptionIndex].VotedBy = append(opts[v.OptionIndex].VotedBy, name(v.UserID))
		total++
	}
	for i := range opts {
		opts[i].Percentage = Percentage(opts[i].Votes, total)
	}
	return &ChoiceResults{Options: opts, TotalVotes: total}
}

func openResults(q *domain.Question, name func(primitive.ObjectID) string) *OpenResults {
	out := &OpenResults{Responses: make([]ResponseResult, 0, len(q.Responses))}
	for _, r := range q.Responses {
		out.Responses = append(out.Responses, ResponseResult{
			Response: r.Response,
			UserID:   r.UserID.Hex(),
			Username: name(r.UserID),
		})
	}
	out.TotalResponses = len(out.Responses)
	return out
}

func ratingResults(q *domain.Question, name func(primitive.ObjectID) string) *RatingResults {
	out := &RatingResults{Ratings: make([]RatingResult, 0, len(q.Ratings))}
	sum := 0
	for _, r := range q.Ratings {
		sum += r.Rating
		out.Ratings = append(out.Ratings, RatingResult{
			Rating:   r.Rating,
			UserID:   r.UserID.Hex(),
			Username: name(r.UserID),
		})
	}
	out.TotalRatings = len(out.Ratings)
	if out.TotalRatings > 0 {
		out.AverageRating = float64(sum) / float64(out.TotalRatings)
	}
	return out
}
