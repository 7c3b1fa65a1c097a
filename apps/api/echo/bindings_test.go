package echoapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/included-edu/included/core"
)

func TestOrdering_Bind(t *testing.T) {
	allowed := []string{"created_at", "title"}
	tests := []struct {
		name    string
		query   string
		want    []core.DBOrdering
		wantErr bool
	}{
		{name: "none", query: ""},
		{name: "empty", query: "?ordering="},
		{name: "ascending", query: "?ordering=title", want: []core.DBOrdering{{Field: "title", Ascending: true}}},
		{
			name:  "several",
			query: "?ordering=-created_at,%20Title",
			want:  []core.DBOrdering{{Field: "created_at"}, {Field: "title", Ascending: true}},
		},
		{name: "repeated", query: "?ordering=title,-title,", want: []core.DBOrdering{{Field: "title", Ascending: true}}},
		{name: "unknown field", query: "?ordering=password_hash", wantErr: true},
	}
	e := echo.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/courses"+tt.query, nil)
			ctx := e.NewContext(req, httptest.NewRecorder())

			var ord Ordering
			err := ord.Bind(ctx, allowed)
			if tt.wantErr {
				vErr, ok := errors.Cause(err).(*core.ValidationError)
				if assert.True(t, ok, "%v", err) {
					assert.Equal(t, "ordering", vErr.Fields[0].Field)
				}
				assert.Empty(t, ord.Orderings)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, ord.Orderings)
		})
	}
}
