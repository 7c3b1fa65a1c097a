package course

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/included-edu/included/core"
	"github.com/included-edu/included/core/generate"
	"github.com/included-edu/included/core/user"
)

// State is the course lifecycle state. The only transition is draft -> published.
type State string

const (
	StateDraft     State = "draft"
	StatePublished State = "published"
)

// Teacher is the owner profile of a user. Name and Email are read from the user.
type Teacher struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	School    string    `json:"school" db:"school"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	Name  string `json:"name" db:"name"`
	Email string `json:"email" db:"email"`
}

type Course struct {
	ID               string     `json:"id" db:"id"`
	TeacherID        string     `json:"teacher_id" db:"teacher_id"`
	Title            string     `json:"title" db:"title"`
	Subject          string     `json:"subject" db:"subject"`
	GradeLevel       int        `json:"grade_level" db:"grade_level"`
	Language         string     `json:"language" db:"language"`
	State            State      `json:"state" db:"state"`
	AIGenerated      bool       `json:"ai_generated" db:"ai_generated"`
	SyllabusSource   string     `json:"syllabus_source" db:"syllabus_source"`
	GenerationPrompt string     `json:"-" db:"generation_prompt"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`     // UTC
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`     // UTC
	PublishedAt      *time.Time `json:"published_at" db:"published_at"` // UTC

	Modules []Module `json:"modules,omitempty" db:"-"`
}

type Module struct {
	ID                 string          `json:"id" db:"id"`
	CourseID           string          `json:"course_id" db:"course_id"`
	Title              string          `json:"title" db:"title"`
	Description        string          `json:"description" db:"description"`
	DurationMinutes    int             `json:"duration_minutes" db:"duration_minutes"`
	LearningObjectives core.StringList `json:"learning_objectives" db:"learning_objectives"`
	OrderIndex         int             `json:"order_index" db:"order_index"` // 1-based

	Lessons []Lesson `json:"lessons" db:"-"`
}

type Lesson struct {
	ID                 string          `json:"id" db:"id"`
	ModuleID           string          `json:"module_id" db:"module_id"`
	Title              string          `json:"title" db:"title"`
	ContentText        string          `json:"content_text" db:"content_text"`
	DurationMinutes    int             `json:"duration_minutes" db:"duration_minutes"`
	LearningObjectives core.StringList `json:"learning_objectives" db:"learning_objectives"`
	Keywords           core.StringList `json:"keywords" db:"keywords"`
	OrderIndex         int             `json:"order_index" db:"order_index"` // 1-based

	Assessment *Assessment `json:"assessment" db:"-"`
}

type Assessment struct {
	ID          string    `json:"id" db:"id"`
	LessonID    string    `json:"lesson_id" db:"lesson_id"`
	Title       string    `json:"title" db:"title"`
	Questions   Questions `json:"questions" db:"questions"`
	TotalPoints int       `json:"total_points" db:"total_points"` // at creation time
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type Question struct {
	Type          string   `json:"type"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Points        int      `json:"points"`
}

// Questions is stored as JSON text.
type Questions []Question

func (q Questions) Value() (driver.Value, error) {
	if q == nil {
		q = Questions{}
	}
	b, err := json.Marshal([]Question(q))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (q *Questions) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*q = Questions{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("course.Questions: cannot scan %T", src)
	}
	return json.Unmarshal(data, (*[]Question)(q))
}

// NewCourse holds what a generation request knows about the course besides its outline.
type NewCourse struct {
	generate.Metadata
	SyllabusSource string // original filename or URL
	SourceText     string // only a prefix is kept for audit
}

type MaterializeResult struct {
	CourseID    string `json:"course_id"`
	ModuleCount int    `json:"module_count"`
	LessonCount int    `json:"lesson_count"`
}

// QueryFilter filters the courses of an owner.
type QueryFilter struct {
	State string `query:"state" validate:"omitempty,oneof=draft published"`
}

// OrderingFields are the fields courses can be ordered by.
var OrderingFields = []string{"created_at", "updated_at", "published_at", "title", "subject", "grade_level"}

// Identity is the authenticated caller, as established by the access control layer.
type Identity struct {
	UserID string
	Roles  []string
}

func (id Identity) IsTeacher() bool {
	for _, r := range id.Roles {
		if strings.HasPrefix(r, user.RoleTeacher) {
			return true
		}
	}
	return false
}
