package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/included-edu/included/core"
	"github.com/included-edu/included/core/course"
	"github.com/included-edu/included/core/user"
	"github.com/included-edu/included/storage/database"
)

// NewConfig returns a configuration suitable for tests: sqlite in a temp dir, small generation limits.
func NewConfig(t *testing.T) *core.Config {
	return &core.Config{
		Env:             "TEST",
		AppName:         "IncludEd",
		TestMode:        true,
		SecretKey:       "test-secret",
		FrontendBaseURL: "http://localhost:3000",
		Server: core.ServerConfig{
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: time.Hour,
		},
		Database: core.DatabaseConfig{
			Engine: database.EngineSQLite,
			Path:   filepath.Join(t.TempDir(), "included_test.db"),
		},
		Generation: core.GenerationConfig{
			Model:            "test-model",
			Temperature:      0.7,
			Timeout:          5 * time.Second,
			FetchTimeout:     5 * time.Second,
			MaxSourceChars:   8000,
			PromptAuditChars: 1000,
			MaxUploadBytes:   1 << 20,
		},
	}
}

// PrepareDB opens and migrates the database of conf. It is closed when the test ends.
func PrepareDB(t *testing.T, conf *core.Config) *sqlx.DB {
	t.Helper()
	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(context.Background(), conf.Database.Engine, db.DB); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

// ResetDB deletes all rows, children first.
func ResetDB(t *testing.T, db core.DBExecutor) {
	t.Helper()
	for _, table := range []string{"assessments", "lessons", "modules", "courses", "teachers", "users"} {
		if _, err := db.ExecContext(context.Background(), "DELETE FROM "+table); err != nil {
			t.Fatalf("ResetDB() failed: %v", err)
		}
	}
}

func NewValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateTeacher creates an active user with the teacher role and its teacher profile.
func CreateTeacher(t *testing.T, userRepo user.Repository, courseRepo course.Repository, name, uname, email, pwd string) (user.User, course.Teacher) {
	t.Helper()
	usr := CreateUser(t, userRepo, name, uname, email, pwd, []string{user.RoleTeacher}, true)
	teacher, err := courseRepo.CreateTeacher(context.Background(), course.Teacher{
		UserID:    usr.ID,
		School:    "Kigali Primary",
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateTeacher() failed: %v", err)
	}
	return usr, teacher
}
