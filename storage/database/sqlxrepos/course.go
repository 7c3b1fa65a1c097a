package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/included-edu/included/core"
	"github.com/included-edu/included/core/course"
)

const (
	courseColumns = `c.id, c.teacher_id, c.title, c.subject, c.grade_level, c.language, c.state, c.ai_generated,
	c.syllabus_source, c.generation_prompt, c.created_at, c.updated_at, c.published_at`

	// courses owned by the teacher profile of a user
	ownedBy = "c.teacher_id IN (SELECT id FROM teachers WHERE user_id = ?)"
)

type courseRepository struct {
	baseRepository
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(exec core.DBExecutor) *courseRepository {
	return &courseRepository{baseRepository{exec: exec}}
}

func (repo courseRepository) CreateTeacher(ctx context.Context, t course.Teacher, exec ...core.DBExecutor) (course.Teacher, error) {
	exe := repo.getExec(exec)
	t.ID = uuid.New().String()

	query := "INSERT INTO teachers (id, user_id, school, created_at) VALUES (?, ?, ?, ?)"
	if _, err := exe.ExecContext(ctx, exe.Rebind(query), t.ID, t.UserID, t.School, t.CreatedAt.UTC()); err != nil {
		return course.Teacher{}, errors.Wrap(err, "inserting teacher")
	}
	return repo.GetTeacherByUserID(ctx, t.UserID, exe)
}

func (repo courseRepository) GetTeacherByUserID(ctx context.Context, userID string, exec ...core.DBExecutor) (course.Teacher, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return course.Teacher{}, course.ErrTeacherNotFound
	}
	exe := repo.getExec(exec)

	var t course.Teacher
	query := `SELECT t.id, t.user_id, t.school, t.created_at, u.name, COALESCE(u.email, '') AS email
		FROM teachers t JOIN users u ON u.id = t.user_id
		WHERE t.user_id = ?`
	if err := exe.GetContext(ctx, &t, exe.Rebind(query), userID); err != nil {
		return course.Teacher{}, trapNoRowsErr(err, course.ErrTeacherNotFound, "finding teacher")
	}
	return t, nil
}

func (repo courseRepository) CreateCourse(ctx context.Context, c course.Course, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)
	query := `INSERT INTO courses (id, teacher_id, title, subject, grade_level, language, state, ai_generated,
		syllabus_source, generation_prompt, created_at, updated_at, published_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := exe.ExecContext(ctx, exe.Rebind(query),
		c.ID, c.TeacherID, c.Title, c.Subject, c.GradeLevel, c.Language, string(c.State), c.AIGenerated,
		c.SyllabusSource, c.GenerationPrompt, c.CreatedAt.UTC(), c.UpdatedAt.UTC(), c.PublishedAt,
	)
	return errors.Wrap(err, "inserting course")
}

func (repo courseRepository) CreateModule(ctx context.Context, m course.Module, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)
	query := `INSERT INTO modules (id, course_id, title, description, duration_minutes, learning_objectives, order_index)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := exe.ExecContext(ctx, exe.Rebind(query),
		m.ID, m.CourseID, m.Title, m.Description, m.DurationMinutes, m.LearningObjectives, m.OrderIndex,
	)
	return errors.Wrap(err, "inserting module")
}

func (repo courseRepository) CreateLesson(ctx context.Context, l course.Lesson, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)
	query := `INSERT INTO lessons (id, module_id, title, content_text, duration_minutes, learning_objectives, keywords, order_index)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := exe.ExecContext(ctx, exe.Rebind(query),
		l.ID, l.ModuleID, l.Title, l.ContentText, l.DurationMinutes, l.LearningObjectives, l.Keywords, l.OrderIndex,
	)
	return errors.Wrap(err, "inserting lesson")
}

func (repo courseRepository) CreateAssessment(ctx context.Context, a course.Assessment, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)
	query := `INSERT INTO assessments (id, lesson_id, title, questions, total_points, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err := exe.ExecContext(ctx, exe.Rebind(query),
		a.ID, a.LessonID, a.Title, a.Questions, a.TotalPoints, a.CreatedAt.UTC(),
	)
	return errors.Wrap(err, "inserting assessment")
}

func (repo courseRepository) PublishCourse(ctx context.Context, courseID, userID string, at time.Time, exec ...core.DBExecutor) (int64, error) {
	exe := repo.getExec(exec)
	// conditional update: a concurrent publish changes no rows
	query := `UPDATE courses SET state = ?, published_at = ?, updated_at = ?
		WHERE id = ? AND state = ? AND teacher_id IN (SELECT id FROM teachers WHERE user_id = ?)`
	res, err := exe.ExecContext(ctx, exe.Rebind(query),
		string(course.StatePublished), at.UTC(), at.UTC(), courseID, string(course.StateDraft), userID,
	)
	if err != nil {
		return 0, errors.Wrap(err, "publishing course")
	}
	n, err := res.RowsAffected()
	return n, errors.Wrap(err, "publishing course")
}

func (repo courseRepository) GetOwnedCourse(ctx context.Context, courseID, userID string, exec ...core.DBExecutor) (course.Course, error) {
	if _, err := uuid.Parse(courseID); err != nil {
		return course.Course{}, course.ErrNotFound
	}
	exe := repo.getExec(exec)

	var c course.Course
	query := "SELECT " + courseColumns + " FROM courses c WHERE c.id = ? AND " + ownedBy
	if err := exe.GetContext(ctx, &c, exe.Rebind(query), courseID, userID); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "finding course")
	}
	return c, nil
}

func (repo courseRepository) QueryOwnedCourses(ctx context.Context, userID string, filter *course.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]course.Course, error) {
	exe := repo.getExec(exec)

	query := "SELECT " + courseColumns + " FROM courses c WHERE " + ownedBy
	args := []interface{}{userID}
	if filter != nil && filter.State != "" {
		query += " AND c.state = ?"
		args = append(args, filter.State)
	}
	if len(ordering) > 0 {
		orderList := make([]string, 0, len(ordering)+1)
		for _, ord := range ordering {
			orderList = append(orderList, "c."+ord.String())
		}
		// stable pagination
		orderList = append(orderList, "c.id ASC")
		query += " ORDER BY " + strings.Join(orderList, ", ")
	}

	courses := make([]course.Course, 0)
	if err := exe.SelectContext(ctx, &courses, exe.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	return courses, nil
}

func (repo courseRepository) QueryModules(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]course.Module, error) {
	exe := repo.getExec(exec)
	query := `SELECT id, course_id, title, description, duration_minutes, learning_objectives, order_index
		FROM modules WHERE course_id = ? ORDER BY order_index`

	modules := make([]course.Module, 0)
	if err := exe.SelectContext(ctx, &modules, exe.Rebind(query), courseID); err != nil {
		return nil, errors.Wrap(err, "querying modules")
	}
	return modules, nil
}

func (repo courseRepository) QueryLessons(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]course.Lesson, error) {
	exe := repo.getExec(exec)
	query := `SELECT l.id, l.module_id, l.title, l.content_text, l.duration_minutes, l.learning_objectives, l.keywords, l.order_index
		FROM lessons l JOIN modules m ON m.id = l.module_id
		WHERE m.course_id = ? ORDER BY m.order_index, l.order_index`

	lessons := make([]course.Lesson, 0)
	if err := exe.SelectContext(ctx, &lessons, exe.Rebind(query), courseID); err != nil {
		return nil, errors.Wrap(err, "querying lessons")
	}
	return lessons, nil
}

func (repo courseRepository) QueryAssessments(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]course.Assessment, error) {
	exe := repo.getExec(exec)
	query := `SELECT a.id, a.lesson_id, a.title, a.questions, a.total_points, a.created_at
		FROM assessments a
		JOIN lessons l ON l.id = a.lesson_id
		JOIN modules m ON m.id = l.module_id
		WHERE m.course_id = ?`

	assessments := make([]course.Assessment, 0)
	if err := exe.SelectContext(ctx, &assessments, exe.Rebind(query), courseID); err != nil {
		return nil, errors.Wrap(err, "querying assessments")
	}
	return assessments, nil
}
