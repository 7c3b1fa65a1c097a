// Package generate asks a language model for a course outline.
package generate

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/included-edu/included/core"
)

var (
	ErrGenerationFailure = errors.New("course generation service failed")
	ErrSchemaViolation   = errors.New("course generation service returned an invalid outline")
)

// Metadata describes the course to generate.
type Metadata struct {
	Title      string `json:"title" form:"title" validate:"required,max=200"`
	Subject    string `json:"subject" form:"subject" validate:"required,max=100"`
	GradeLevel int    `json:"grade_level" form:"grade_level" validate:"gradelevel"`
	Language   string `json:"language" form:"language" validate:"required,langtag"`
}

func (m *Metadata) Clean() {
	m.Title = core.CleanString(m.Title)
	m.Subject = core.CleanString(m.Subject)
	m.Language = core.CleanString(m.Language)
}

// Completer sends one prompt to a language model and returns the raw JSON answer.
type Completer interface {
	CompleteJSON(ctx context.Context, prompt Prompt) ([]byte, error)
}

type Generator struct {
	client         Completer
	validate       *validator.Validate
	maxSourceChars int
	temperature    float64
	timeout        time.Duration
}

func NewGenerator(client Completer, validate *validator.Validate, conf *core.Config) *Generator {
	return &Generator{
		client:         client,
		validate:       validate,
		maxSourceChars: conf.Generation.MaxSourceChars,
		temperature:    conf.Generation.Temperature,
		timeout:        conf.Generation.Timeout,
	}
}

// Generate sends one request for meta and the first maxSourceChars runes of text. There are no retries.
func (g *Generator) Generate(ctx context.Context, text string, meta Metadata) (Outline, error) {
	prompt, err := BuildPrompt(meta, core.TruncateString(text, g.maxSourceChars), g.temperature)
	if err != nil {
		return Outline{}, core.NewKindError(ErrGenerationFailure, err)
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	raw, err := g.client.CompleteJSON(ctx, prompt)
	if err != nil {
		return Outline{}, core.NewKindError(ErrGenerationFailure, err)
	}
	return ParseOutline(raw, g.validate)
}
