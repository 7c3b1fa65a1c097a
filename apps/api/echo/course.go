package echoapi

import (
	"io"
	"mime/multipart"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/included-edu/included/core"
	"github.com/included-edu/included/core/course"
	"github.com/included-edu/included/core/extract"
	"github.com/included-edu/included/core/generate"
)

const syllabusField = "syllabus"

type courseApi struct {
	svc            *course.Service
	pipeline       *course.Pipeline
	validate       *validator.Validate
	maxUploadBytes int64
}

func registerCourseAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *course.Service,
	pipeline *course.Pipeline,
	validate *validator.Validate,
	conf *core.Config,
	bodyLimit echo.MiddlewareFunc,
) {
	api := courseApi{
		svc:            svc,
		pipeline:       pipeline,
		validate:       validate,
		maxUploadBytes: conf.Generation.MaxUploadBytes,
	}

	cg := g.Group("/courses", jwt, teacherMiddleware())
	cg.POST("/generate", api.generate, bodyLimit)
	cg.GET("", api.query)

	// detail endpoints
	cg.GET("/:id", api.retrieve)
	cg.POST("/:id/publish", api.publish)
}

type generateRequest struct {
	generate.Metadata
	SourceURL string `form:"source_url" json:"source_url"`
}

// Handlers

func (api *courseApi) generate(ctx echo.Context) error {
	var data generateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to generateRequest")
	}

	in := course.GenerateInput{
		Metadata:  data.Metadata,
		SourceURL: core.CleanString(data.SourceURL),
	}
	doc, err := api.readSyllabus(ctx)
	if err != nil {
		return err
	}
	in.Document = doc

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	res, err := api.pipeline.Generate(ctx.Request().Context(), claims.Identity(), in)
	if err != nil {
		return errors.Wrap(err, "generating course")
	}
	return ctx.JSON(http.StatusCreated, res)
}

// readSyllabus returns the uploaded file, or nil when there is none.
func (api *courseApi) readSyllabus(ctx echo.Context) (*extract.Document, error) {
	fh, err := ctx.FormFile(syllabusField)
	if err != nil {
		switch {
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			return nil, nil
		case errors.Is(err, echo.ErrStatusRequestEntityTooLarge):
			return nil, errPayloadTooLarge
		}
		return nil, core.NewValidationError(err, core.FieldError{Field: syllabusField, Error: "could not read the uploaded file"})
	}
	if fh.Size > api.maxUploadBytes {
		return nil, errPayloadTooLarge
	}

	data, err := readFormFile(fh, api.maxUploadBytes)
	if err != nil {
		return nil, err
	}
	return &extract.Document{
		Data:      data,
		MediaType: fh.Header.Get(echo.HeaderContentType),
		Filename:  fh.Filename,
	}, nil
}

func readFormFile(fh *multipart.FileHeader, max int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, errors.Wrap(err, "opening uploaded file")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, max+1))
	if err != nil {
		return nil, errors.Wrap(err, "reading uploaded file")
	}
	if int64(len(data)) > max {
		return nil, errPayloadTooLarge
	}
	return data, nil
}

func (api *courseApi) publish(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if err = api.svc.Publish(ctx.Request().Context(), ctx.Param("id"), claims.Subject); err != nil {
		return errors.Wrap(err, "publishing course")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "course published"})
}

func (api *courseApi) query(ctx echo.Context) error {
	var filter course.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	if err := api.validate.Struct(filter); err != nil {
		return err
	}
	var ordering Ordering
	if err := ordering.Bind(ctx, course.OrderingFields); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	courses, err := api.svc.ListByOwner(ctx.Request().Context(), claims.Subject, &filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	c, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "retrieving course")
	}
	return ctx.JSON(http.StatusOK, c)
}
