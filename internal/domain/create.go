package domain

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NewPost struct {
	Type        PostType   `json:"type"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	CreatedBy   string     `json:"createdBy"`
	Poll        *NewPoll   `json:"poll,omitempty"`
	Survey      *NewSurvey `json:"survey,omitempty"`
	Attachments []string   `json:"attachments,omitempty"`
}

type NewPoll struct {
	Question string        `json:"question"`
	Deadline string        `json:"deadline"`
	Options  []OptionInput `json:"options"`
}

type NewSurvey struct {
	Deadline  string        `json:"deadline"`
	Questions []NewQuestion `json:"questions"`
}

type NewQuestion struct {
	Question string        `json:"question"`
	Type     QuestionType  `json:"type"`
	Options  []OptionInput `json:"options,omitempty"`
}

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

func deadlineFrom(s string, now time.Time) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, validationf("deadline is required")
	}
	d, err := ParseDeadline(s)
	if err != nil {
		return time.Time{}, validationf("deadline %q is not a date", s)
	}
	if d.Before(DateOnly(now)) {
		return time.Time{}, validationf("deadline must be in the future")
	}
	return d, nil
}

// BuildPost validates a creation request and returns the post ready to insert.
func BuildPost(in NewPost, now time.Time, grace time.Duration) (*Post, error) {
	if !in.Type.Valid() {
		return nil, validationf("unknown post type %q", in.Type)
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, validationf("title is required")
	}
	owner, err := primitive.ObjectIDFromHex(in.CreatedBy)
	if err != nil {
		return nil, validationf("createdBy is not a valid id")
	}

	p := &Post{
		ID:          primitive.NewObjectID(),
		Type:        in.Type,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		CreatedBy:   owner,
		CreatedAt:   now.UTC(),
		UpVotes:     []VoterRef{},
		DownVotes:   []VoterRef{},
		Attachments: in.Attachments,
		Comments:    []Comment{},
	}
	if p.Attachments == nil {
		p.Attachments = []string{}
	}

	switch in.Type {
	case PostPoll:
		if p.Poll, err = buildPoll(in.Poll, now); err != nil {
			return nil, err
		}
	case PostSurvey:
		if p.Survey, err = buildSurvey(in.Survey, now); err != nil {
			return nil, err
		}
	}
	p.RefreshStatus(now, grace)
	return p, nil
}

func buildPoll(in *NewPoll, now time.Time) (*Poll, error) {
	if in == nil {
		return nil, validationf("poll details are required")
	}
	q := strings.TrimSpace(in.Question)
	if q == "" {
		return nil, validationf("poll question is required")
	}
	d, err := deadlineFrom(in.Deadline, now)
	if err != nil {
		return nil, err
	}
	if len(in.Options) < 2 {
		return nil, validationf("a poll needs at least two options")
	}
	choices, err := NormalizeChoices(in.Options)
	if err != nil {
		return nil, err
	}
	opts := make([]PollOption, len(choices))
	for i, c := range choices {
		opts[i] = PollOption{ID: c.ID, Text: c.Text, VotedBy: []VoterRef{}}
	}
	return &Poll{Question: q, Deadline: d, Options: opts}, nil
}

func buildSurvey(in *NewSurvey, now time.Time) (*Survey, error) {
	if in == nil {
		return nil, validationf("survey details are required")
	}
	d, err := deadlineFrom(in.Deadline, now)
	if err != nil {
		return nil, err
	}
	if len(in.Questions) == 0 {
		return nil, validationf("a survey needs at least one question")
	}
	qs := make([]Question, 0, len(in.Questions))
	for i, nq := range in.Questions {
		text := strings.TrimSpace(nq.Question)
		if text == "" {
			return nil, validationf("question %d is empty", i)
		}
		if !nq.Type.Valid() {
			return nil, validationf("question %d has unknown type %q", i, nq.Type)
		}
		q := Question{
			Question:  text,
			Type:      nq.Type,
			Options:   []Choice{},
			Votes:     []ChoiceVote{},
			Responses: []OpenResponse{},
			Ratings:   []RatingResponse{},
		}
		if nq.Type == QuestionMultipleChoice {
			if len(nq.Options) < 2 {
				return nil, validationf("question %d needs at least two options", i)
			}
			if q.Options, err = NormalizeChoices(nq.Options); err != nil {
				return nil, err
			}
		}
		qs = append(qs, q)
	}
	return &Survey{Questions: qs, Deadline: d}, nil
}
