package generate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/included-edu/included/core"
)

type (
	// Outline is the course structure returned by the language model. It is never persisted as is.
	Outline struct {
		Modules []OutlineModule `json:"modules" validate:"required,dive"`
	}

	OutlineModule struct {
		Title              string          `json:"title" validate:"required"`
		Description        string          `json:"description"`
		DurationMinutes    int             `json:"duration_minutes" validate:"min=0"`
		LearningObjectives []string        `json:"learning_objectives"`
		Lessons            []OutlineLesson `json:"lessons" validate:"dive"`
	}

	OutlineLesson struct {
		Title              string             `json:"title" validate:"required"`
		ContentText        string             `json:"content_text"`
		DurationMinutes    int                `json:"duration_minutes" validate:"min=0"`
		LearningObjectives []string           `json:"learning_objectives"`
		Keywords           []string           `json:"keywords"`
		Assessment         *OutlineAssessment `json:"assessment,omitempty"`
	}

	OutlineAssessment struct {
		Title     string            `json:"title" validate:"required"`
		Questions []OutlineQuestion `json:"questions" validate:"dive"`
	}

	OutlineQuestion struct {
		Type          string   `json:"type"`
		Question      string   `json:"question" validate:"required"`
		Options       []string `json:"options"`
		CorrectAnswer Answer   `json:"correct_answer"`
		Points        int      `json:"points" validate:"min=0"`
	}
)

// LessonCount is the number of lessons across all modules.
func (o Outline) LessonCount() int {
	var n int
	for _, m := range o.Modules {
		n += len(m.Lessons)
	}
	return n
}

// TotalPoints sums the points of all questions.
func (a OutlineAssessment) TotalPoints() int {
	var total int
	for _, q := range a.Questions {
		total += q.Points
	}
	return total
}

// Answer holds a correct answer. Models answer with either a string, a number (option index) or a boolean.
type Answer string

func (a *Answer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*a = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Answer(s)
	case bytes.Equal(data, []byte("true")), bytes.Equal(data, []byte("false")):
		*a = Answer(data)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("correct_answer: want string, number or boolean, got %s", data)
		}
		if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
			return fmt.Errorf("correct_answer: %w", err)
		}
		*a = Answer(n.String())
	}
	return nil
}

// ParseOutline decodes and validates a raw model response.
// Anything that does not match the Outline shape is an ErrSchemaViolation.
func ParseOutline(raw []byte, validate *validator.Validate) (Outline, error) {
	raw = stripCodeFence(raw)

	var outline Outline
	if err := json.Unmarshal(raw, &outline); err != nil {
		return Outline{}, core.NewKindError(ErrSchemaViolation, errors.Wrap(err, "decoding outline"))
	}
	if err := validate.Struct(outline); err != nil {
		return Outline{}, core.NewKindError(ErrSchemaViolation, errors.Wrap(err, "validating outline"))
	}
	return outline, nil
}

// stripCodeFence removes a ```json ... ``` wrapper some models add despite JSON mode.
func stripCodeFence(raw []byte) []byte {
	raw = bytes.TrimSpace(raw)
	if !bytes.HasPrefix(raw, []byte("```")) {
		return raw
	}
	raw = raw[3:]
	if i := bytes.IndexByte(raw, '\n'); i >= 0 {
		raw = raw[i+1:]
	}
	raw = bytes.TrimSuffix(bytes.TrimSpace(raw), []byte("```"))
	return bytes.TrimSpace(raw)
}
