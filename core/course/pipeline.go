package course

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/included-edu/included/core"
	"github.com/included-edu/included/core/extract"
	"github.com/included-edu/included/core/generate"
)

var errSourceRequired = errors.New("provide either a syllabus file or a source url")

// GenerateInput is one course generation request. Exactly one of Document and SourceURL must be set.
type GenerateInput struct {
	generate.Metadata
	Document  *extract.Document
	SourceURL string
}

// Pipeline runs extraction, generation and materialization for one request, in that order.
type Pipeline struct {
	extractor   *extract.Extractor
	generator   *generate.Generator
	svc         *Service
	validate    *validator.Validate
	logger      core.Logger
	fetcher      *resty.Client
	maxDocBytes  int64
	privateHosts bool
}

func NewPipeline(
	extractor *extract.Extractor,
	generator *generate.Generator,
	svc *Service,
	validate *validator.Validate,
	logger core.Logger,
	conf *core.Config,
) *Pipeline {
	return &Pipeline{
		extractor:    extractor,
		generator:    generator,
		svc:          svc,
		validate:     validate,
		logger:       logger,
		fetcher:      newFetcher(conf),
		maxDocBytes:  conf.Generation.MaxUploadBytes,
		privateHosts: conf.Generation.FetchPrivateHost,
	}
}

func (p *Pipeline) validateInput(in *GenerateInput) error {
	in.Metadata.Clean()
	if err := p.validate.Struct(in.Metadata); err != nil {
		return err
	}

	hasDoc := in.Document != nil && (len(in.Document.Data) > 0 || in.Document.MediaType != "")
	hasURL := in.SourceURL != ""
	if hasDoc == hasURL {
		return core.NewValidationError(errSourceRequired,
			core.FieldError{Field: "syllabus", Error: errSourceRequired.Error()},
			core.FieldError{Field: "source_url", Error: errSourceRequired.Error()},
		)
	}
	if hasURL {
		u, err := url.Parse(in.SourceURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
			return core.NewValidationError(errors.New("invalid source url"),
				core.FieldError{Field: "source_url", Error: "must be an http(s) url"},
			)
		}
		if !p.privateHosts && isPrivateHost(u.Hostname()) {
			return core.NewValidationError(errors.New("private source url"),
				core.FieldError{Field: "source_url", Error: "must point to a public host"},
			)
		}
	}
	return nil
}

// Generate creates a draft course for caller. Every failure carries its kind (see core.ErrorKind).
func (p *Pipeline) Generate(ctx context.Context, caller Identity, in GenerateInput) (MaterializeResult, error) {
	if !caller.IsTeacher() {
		return MaterializeResult{}, core.NewKindError(ErrForbidden, nil)
	}
	if err := p.validateInput(&in); err != nil {
		return MaterializeResult{}, err
	}
	// fail before paying for a generation
	if _, err := p.svc.resolveOwner(ctx, caller.UserID); err != nil {
		return MaterializeResult{}, err
	}

	var doc extract.Document
	if in.SourceURL != "" {
		var err error
		if doc, err = p.fetch(ctx, in.SourceURL); err != nil {
			return MaterializeResult{}, err
		}
	} else {
		doc = *in.Document
	}

	start := time.Now()
	text, err := p.extractor.Extract(doc)
	if err != nil {
		return MaterializeResult{}, err
	}
	p.logger.Info(fmt.Sprintf("course generation: extracted %d characters from %q", len([]rune(text)), doc.Filename))

	outline, err := p.generator.Generate(ctx, text, in.Metadata)
	if err != nil {
		return MaterializeResult{}, err
	}
	p.logger.Info(fmt.Sprintf("course generation: outline with %d modules after %s", len(outline.Modules), time.Since(start).Round(time.Millisecond)))

	nc := NewCourse{Metadata: in.Metadata, SyllabusSource: doc.Filename, SourceText: text}
	res, err := p.svc.Materialize(ctx, caller.UserID, nc, outline)
	if err != nil {
		return MaterializeResult{}, err
	}
	p.logger.Info(fmt.Sprintf("course generation: course %s saved with %d modules and %d lessons", res.CourseID, res.ModuleCount, res.LessonCount))

	p.svc.notifyGenerated(ctx, caller.UserID, nc, res)
	return res, nil
}
