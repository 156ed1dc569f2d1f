package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PostType string

const (
	PostGeneral       PostType = "general"
	PostIssue         PostType = "issue"
	PostPoll          PostType = "poll"
	PostSurvey        PostType = "survey"
	PostMarketplace   PostType = "marketplace"
	PostAnnouncements PostType = "announcements"
)

func (t PostType) Valid() bool {
	switch t {
	case PostGeneral, PostIssue, PostPoll, PostSurvey, PostMarketplace, PostAnnouncements:
		return true
	}
	return false
}

// Votable reports whether posts of this type carry a vote ledger.
func (t PostType) Votable() bool { return t == PostPoll || t == PostSurvey }

type Post struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"        json:"id"`
	Type        PostType           `bson:"type"                 json:"type"`
	Title       string             `bson:"title"                json:"title"`
	Description string             `bson:"description"          json:"description"`
	CreatedBy   primitive.ObjectID `bson:"created_by"           json:"createdBy"`
	CreatedAt   time.Time          `bson:"created_at"           json:"createdAt"`
	UpVotes     []VoterRef         `bson:"up_votes"             json:"upVotes"`
	DownVotes   []VoterRef         `bson:"down_votes"           json:"downVotes"`
	Attachments []string           `bson:"attachments"          json:"attachments"`
	Comments    []Comment          `bson:"comments"             json:"comments"`
	Poll        *Poll              `bson:"poll,omitempty"       json:"poll,omitempty"`
	Survey      *Survey            `bson:"survey,omitempty"     json:"survey,omitempty"`
}

type Comment struct {
	ID        primitive.ObjectID `bson:"_id"        json:"id"`
	UserID    primitive.ObjectID `bson:"user_id"    json:"userId"`
	Text      string             `bson:"text"       json:"text"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
}

// VoterRef is the `{userId}` marker kept in ledgers.
type VoterRef struct {
	UserID primitive.ObjectID `bson:"user_id" json:"userId"`
}

type Poll struct {
	Question string       `bson:"question" json:"question"`
	Deadline time.Time    `bson:"deadline" json:"deadline"`
	Status   Status       `bson:"status"   json:"status"`
	Options  []PollOption `bson:"options"  json:"options"`
}

// PollOption invariant: Votes == len(VotedBy).
type PollOption struct {
	ID      primitive.ObjectID `bson:"id"       json:"id"`
	Text    string             `bson:"text"     json:"text"`
	Votes   int                `bson:"votes"    json:"votes"`
	VotedBy []VoterRef         `bson:"voted_by" json:"votedBy"`
}

// HasVoted reports whether userID already appears in any option of the poll.
func (p *Poll) HasVoted(userID primitive.ObjectID) bool {
	for _, o := range p.Options {
		for _, v := range o.VotedBy {
			if v.UserID == userID {
				return true
			}
		}
	}
	return false
}

func (p *Poll) Option(id primitive.ObjectID) (int, bool) {
	for i, o := range p.Options {
		if o.ID == id {
			return i, true
		}
	}
	return -1, false
}

type Survey struct {
	Questions []Question `bson:"questions" json:"questions"`
	Deadline  time.Time  `bson:"deadline"  json:"deadline"`
	Status    Status     `bson:"status"    json:"status"`
}

type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple-choice"
	QuestionOpenEnded      QuestionType = "open-ended"
	QuestionRating         QuestionType = "rating"
)

func (t QuestionType) Valid() bool {
	return t == QuestionMultipleChoice || t == QuestionOpenEnded || t == QuestionRating
}

type Question struct {
	Question  string           `bson:"question"  json:"question"`
	Type      QuestionType     `bson:"type"      json:"type"`
	Options   []Choice         `bson:"options"   json:"options,omitempty"`
	Votes     []ChoiceVote     `bson:"votes"     json:"votes,omitempty"`
	Responses []OpenResponse   `bson:"responses" json:"responses,omitempty"`
	Ratings   []RatingResponse `bson:"ratings"   json:"ratings,omitempty"`
}

// Choice is a survey multiple-choice option in its normalized {id, text} form.
type Choice struct {
	ID   primitive.ObjectID `bson:"id"   json:"id"`
	Text string             `bson:"text" json:"text"`
}

type ChoiceVote struct {
	OptionIndex int                `bson:"option_index" json:"optionIndex"`
	UserID      primitive.ObjectID `bson:"user_id"      json:"userId"`
}

type OpenResponse struct {
	Response string             `bson:"response" json:"response"`
	UserID   primitive.ObjectID `bson:"user_id"  json:"userId"`
}

type RatingResponse struct {
	Rating int                `bson:"rating"  json:"rating"`
	UserID primitive.ObjectID `bson:"user_id" json:"userId"`
}

const (
	MinRating = 1
	MaxRating = 5
)

// Answered reports whether userID already has an entry in the ledger that
// matches the question type.
func (q *Question) Answered(userID primitive.ObjectID) bool {
	switch q.Type {
	case QuestionMultipleChoice:
		for _, v := range q.Votes {
			if v.UserID == userID {
				return true
			}
		}
	case QuestionOpenEnded:
		for _, r := range q.Responses {
			if r.UserID == userID {
				return true
			}
		}
	case QuestionRating:
		for _, r := range q.Ratings {
			if r.UserID == userID {
				return true
			}
		}
	}
	return false
}

// Deadline returns the voting deadline of a poll or survey post.
func (p *Post) Deadline() (time.Time, bool) {
	switch {
	case p.Type == PostPoll && p.Poll != nil:
		return p.Poll.Deadline, true
	case p.Type == PostSurvey && p.Survey != nil:
		return p.Survey.Deadline, true
	}
	return time.Time{}, false
}

// RefreshStatus recomputes the stored status for now. Posts without a
// deadline are left untouched.
func (p *Post) RefreshStatus(now time.Time, grace time.Duration) Status {
	d, ok := p.Deadline()
	if !ok {
		return ""
	}
	st := DeriveStatus(d, now, grace)
	if p.Poll != nil {
		p.Poll.Status = st
	}
	if p.Survey != nil {
		p.Survey.Status = st
	}
	return st
}
