package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/included-edu/included/core"
	"github.com/included-edu/included/core/course"
	"github.com/included-edu/included/core/extract"
	"github.com/included-edu/included/core/generate"
	testutil "github.com/included-edu/included/tests"
)

func Test_appHTTPErrorHandler_kinds(t *testing.T) {
	_, translator := testutil.NewValidator()
	handle := newAppHTTPErrorHandler(core.NopLogger{}, translator, func() {})
	cause := errors.New("internal detail")

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody ErrorResponse
	}{
		{
			name:     "uploaded document too large",
			err:      errPayloadTooLarge,
			wantCode: http.StatusRequestEntityTooLarge,
			wantBody: ErrorResponse{Code: "payload_too_large", Error: "syllabus file is too large"},
		},
		{
			name:     "fetched document too large",
			err:      errors.Wrap(core.NewKindError(extract.ErrDocumentTooLarge, cause), "generating course"),
			wantCode: http.StatusRequestEntityTooLarge,
			wantBody: ErrorResponse{Code: "payload_too_large", Error: extract.ErrDocumentTooLarge.Error()},
		},
		{
			name:     "unsupported format",
			err:      core.NewKindError(extract.ErrUnsupportedFormat, cause),
			wantCode: http.StatusUnsupportedMediaType,
			wantBody: ErrorResponse{Code: "unsupported_format", Error: extract.ErrUnsupportedFormat.Error()},
		},
		{
			name:     "schema violation",
			err:      core.NewKindError(generate.ErrSchemaViolation, cause),
			wantCode: http.StatusFailedDependency,
			wantBody: ErrorResponse{Code: "schema_violation", Error: generate.ErrSchemaViolation.Error()},
		},
		{
			name:     "not found",
			err:      core.NewKindError(course.ErrNotFoundOrUnauthorized, nil),
			wantCode: http.StatusNotFound,
			wantBody: ErrorResponse{Code: "not_found", Error: course.ErrNotFoundOrUnauthorized.Error()},
		},
		{
			name:     "client gone",
			err:      errors.Wrap(context.Canceled, "generating course"),
			wantCode: statusClientClosedRequest,
			wantBody: ErrorResponse{Code: "client_closed_request", Error: "request cancelled"},
		},
		{
			name:     "anything else",
			err:      cause,
			wantCode: http.StatusInternalServerError,
			wantBody: ErrorResponse{Code: "internal_server_error", Error: http.StatusText(http.StatusInternalServerError)},
		},
	}
	e := echo.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handle(tt.err, e.NewContext(httptest.NewRequest(http.MethodPost, "/v1/courses/generate", nil), rec))

			assert.Equal(t, tt.wantCode, rec.Code)
			var got ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.wantBody, got)
		})
	}
}
