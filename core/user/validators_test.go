package user

import (
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/included-edu/included/core"
)

func newTestValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)
	return validate, translator
}

func fieldErrors(t *testing.T, err error, translator ut.Translator) map[string]string {
	t.Helper()
	if err == nil {
		return nil
	}
	vErrs, ok := err.(validator.ValidationErrors)
	require.True(t, ok, "unexpected error: %v", err)
	flds := make(map[string]string)
	for _, fld := range core.ValidationErrorFields(vErrs, translator) {
		flds[fld.Field] = fld.Error
	}
	return flds
}

func Test_validatePassword(t *testing.T) {
	validate, translator := newTestValidator()

	tests := []struct {
		name    string
		pwd     string
		wantErr string
	}{
		{name: "too short", pwd: "Ab1!", wantErr: pwdMinLenText},
		{name: "whitespace", pwd: "Abcd 123!", wantErr: pwdNoSpaceText},
		{name: "all numeric", pwd: "1234567890", wantErr: pwdNotAllNumText},
		{name: "no special", pwd: "Abcd12345", wantErr: pwdComplexityText},
		{name: "no upper", pwd: "abcd123!!", wantErr: pwdComplexityText},
		{name: "too similar", pwd: "Mukamana1!", wantErr: pwdAttrSimText},
		{name: "valid", pwd: "Kig@li2024"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nu := NewUser{
				Name:            "Mukamana",
				Username:        "amukamana",
				Password:        tt.pwd,
				PasswordConfirm: tt.pwd,
			}
			got := fieldErrors(t, validate.Struct(nu), translator)
			if tt.wantErr == "" {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, map[string]string{"password": tt.wantErr}, got)
		})
	}
}

func Test_userStructValidation(t *testing.T) {
	validate, translator := newTestValidator()

	tests := []struct {
		name       string
		data       interface{}
		wantFields map[string]string
	}{
		{
			name: "username or email required",
			data: NewUser{Name: "Ada", Password: "Kig@li2024", PasswordConfirm: "Kig@li2024"},
			wantFields: map[string]string{
				"username": usernameOrEmailText,
				"email":    usernameOrEmailText,
			},
		},
		{
			name:       "invalid roles",
			data:       NewUser{Name: "Ada", Email: "ada@test.rw", Password: "Kig@li2024", PasswordConfirm: "Kig@li2024", Roles: []string{"root:"}},
			wantFields: map[string]string{"roles": allRolesText},
		},
		{
			name: "valid teacher",
			data: NewUser{Name: "Ada", Email: "ada@test.rw", Password: "Kig@li2024", PasswordConfirm: "Kig@li2024", Roles: []string{RoleTeacher}},
		},
		{
			name:       "set password: similar to username",
			data:       NewSetPassword(User{Username: "mukamana"}, "Mukamana1!", "Mukamana1!"),
			wantFields: map[string]string{"password": pwdAttrSimText},
		},
		{
			name: "set password: valid",
			data: NewSetPassword(User{Username: "mukamana"}, "Kig@li2024", "Kig@li2024"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fieldErrors(t, validate.Struct(tt.data), translator)
			if tt.wantFields == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.wantFields, got)
		})
	}
}

func TestUser_roles(t *testing.T) {
	usr := User{Roles: core.StringList{RoleTeacher}}
	assert.True(t, usr.IsTeacher())
	assert.False(t, usr.IsAdmin())
	assert.False(t, usr.IsStudent())

	require.NoError(t, usr.SetPassword("Kig@li2024"))
	assert.NoError(t, usr.CheckPassword("Kig@li2024"))
	assert.Error(t, usr.CheckPassword("kig@li2024"))
}
