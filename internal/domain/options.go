package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OptionInput accepts either a bare string or an object with text (and
// optionally an id) so older clients that send string arrays keep working.
type OptionInput struct {
	ID   string `json:"id,omitempty"`
	Text string `json:"text"`
}

func (o *OptionInput) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		o.Text = s
		return nil
	}
	type plain OptionInput
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*o = OptionInput(p)
	return nil
}

func optionID(in OptionInput) primitive.ObjectID {
	if id, err := primitive.ObjectIDFromHex(in.ID); err == nil {
		return id
	}
	return primitive.NewObjectID()
}

// NormalizeChoices turns raw inputs into {id, text} choices. Blank entries are rejected.
func NormalizeChoices(in []OptionInput) ([]Choice, error) {
	out := make([]Choice, 0, len(in))
	seen := make(map[primitive.ObjectID]struct{}, len(in))
	for i, o := range in {
		text := strings.TrimSpace(o.Text)
		if text == "" {
			return nil, fmt.Errorf("%w: option %d is empty", ErrValidation, i)
		}
		id := optionID(o)
		if _, dup := seen[id]; dup {
			id = primitive.NewObjectID()
		}
		seen[id] = struct{}{}
		out = append(out, Choice{ID: id, Text: text})
	}
	return out, nil
}

// ResolveChoice maps an option reference to its position in q.Options. The
// reference is an option id; a decimal position is accepted as a fallback.
func ResolveChoice(q *Question, ref string) (int, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return -1, fmt.Errorf("%w: option is required", ErrValidation)
	}
	if id, err := primitive.ObjectIDFromHex(ref); err == nil {
		for i, c := range q.Options {
			if c.ID == id {
				return i, nil
			}
		}
		return -1, ErrInvalidOption
	}
	if n, err := strconv.Atoi(ref); err == nil && n >= 0 && n < len(q.Options) {
		return n, nil
	}
	return -1, ErrInvalidOption
}

// ResolvePollOption maps an option reference to the id of a poll option.
func ResolvePollOption(p *Poll, ref string) (primitive.ObjectID, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return primitive.NilObjectID, fmt.Errorf("%w: option is required", ErrValidation)
	}
	if id, err := primitive.ObjectIDFromHex(ref); err == nil {
		if _, ok := p.Option(id); ok {
			return id, nil
		}
		return primitive.NilObjectID, ErrInvalidOption
	}
	if n, err := strconv.Atoi(ref); err == nil && n >= 0 && n < len(p.Options) {
		return p.Options[n].ID, nil
	}
	return primitive.NilObjectID, ErrInvalidOption
}
