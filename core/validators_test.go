package core

import (
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	InitValidators(validate, translator)
	return validate, translator
}

func TestInitValidators(t *testing.T) {
	validate, translator := newTestValidator()

	type course struct {
		Title      string `json:"title" validate:"required"`
		GradeLevel int    `json:"grade_level" validate:"gradelevel"`
		Language   string `json:"language" validate:"langtag"`
		Handle     string `json:"handle" validate:"omitempty,alphanum_"`
	}

	tests := []struct {
		name       string
		data       course
		wantFields map[string]string
	}{
		{name: "valid", data: course{Title: "Maths", GradeLevel: 4, Language: "en", Handle: "maths_4"}},
		{name: "valid regional language", data: course{Title: "Maths", GradeLevel: 12, Language: "fr-CA"}},
		{
			name: "invalid",
			data: course{GradeLevel: 13, Language: "english", Handle: "maths-4"},
			wantFields: map[string]string{
				"title":       requiredText,
				"grade_level": gradeLevelText,
				"language":    langTagText,
				"handle":      alphaNumUnderText,
			},
		},
		{
			name:       "grade zero",
			data:       course{Title: "Maths", GradeLevel: 0, Language: "en"},
			wantFields: map[string]string{"grade_level": gradeLevelText},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.data)
			if tt.wantFields == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			vErrs, ok := err.(validator.ValidationErrors)
			require.True(t, ok)
			got := make(map[string]string)
			for _, fld := range ValidationErrorFields(vErrs, translator) {
				got[fld.Field] = fld.Error
			}
			assert.Equal(t, tt.wantFields, got)
		})
	}
}
