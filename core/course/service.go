// Package course materializes generated outlines into courses and manages their lifecycle.
package course

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/included-edu/included/core"
	"github.com/included-edu/included/core/generate"
)

var (
	// public error kinds
	ErrForbidden              = errors.New("only teachers can generate courses")
	ErrOwnerNotFound          = errors.New("no teacher profile found for this user")
	ErrPersistenceFailure     = errors.New("course could not be saved")
	ErrNotFoundOrUnauthorized = errors.New("course not found")

	// repository errors
	ErrNotFound        = errors.New("course not found")
	ErrTeacherNotFound = errors.New("teacher not found")
)

type (
	Repository interface {
		CreateTeacher(ctx context.Context, t Teacher, exec ...core.DBExecutor) (Teacher, error)
		// GetTeacherByUserID returns ErrTeacherNotFound if the user has no teacher profile.
		GetTeacherByUserID(ctx context.Context, userID string, exec ...core.DBExecutor) (Teacher, error)

		CreateCourse(ctx context.Context, c Course, exec ...core.DBExecutor) error
		CreateModule(ctx context.Context, m Module, exec ...core.DBExecutor) error
		CreateLesson(ctx context.Context, l Lesson, exec ...core.DBExecutor) error
		CreateAssessment(ctx context.Context, a Assessment, exec ...core.DBExecutor) error

		// PublishCourse moves a draft course owned by the user to published and returns the number of rows changed.
		PublishCourse(ctx context.Context, courseID, userID string, at time.Time, exec ...core.DBExecutor) (int64, error)

		// GetOwnedCourse returns ErrNotFound if the course does not exist or is not owned by the user.
		GetOwnedCourse(ctx context.Context, courseID, userID string, exec ...core.DBExecutor) (Course, error)
		QueryOwnedCourses(ctx context.Context, userID string, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Course, error)
		QueryModules(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]Module, error)
		// QueryLessons returns the lessons of all the modules of a course.
		QueryLessons(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]Lesson, error)
		QueryAssessments(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]Assessment, error)
	}

	Service struct {
		db               core.DB
		repo             Repository
		mailSvc          core.EmailService
		logger           core.Logger
		promptAuditChars int
	}
)

func NewService(db core.DB, repo Repository, mailSvc core.EmailService, logger core.Logger, conf *core.Config) *Service {
	return &Service{
		db:               db,
		repo:             repo,
		mailSvc:          mailSvc,
		logger:           logger,
		promptAuditChars: conf.Generation.PromptAuditChars,
	}
}

// RegisterTeacher creates the teacher profile of a user, or returns the existing one.
func (svc *Service) RegisterTeacher(ctx context.Context, userID, school string) (Teacher, error) {
	t, err := svc.repo.GetTeacherByUserID(ctx, userID)
	if err == nil {
		return t, nil
	}
	if errors.Cause(err) != ErrTeacherNotFound {
		return Teacher{}, errors.Wrap(err, "finding teacher")
	}
	return svc.repo.CreateTeacher(ctx, Teacher{
		UserID:    userID,
		School:    core.CleanString(school),
		CreatedAt: time.Now().UTC(),
	})
}

// resolveOwner maps the authenticated user to its teacher profile.
func (svc *Service) resolveOwner(ctx context.Context, userID string) (Teacher, error) {
	t, err := svc.repo.GetTeacherByUserID(ctx, userID)
	if err != nil {
		if errors.Cause(err) == ErrTeacherNotFound {
			return Teacher{}, core.NewKindError(ErrOwnerNotFound, err)
		}
		return Teacher{}, core.NewKindError(ErrPersistenceFailure, errors.Wrap(err, "finding teacher"))
	}
	return t, nil
}

// Materialize persists outline as a draft course owned by ownerID, in one transaction.
// Either the whole tree is committed or nothing is.
func (svc *Service) Materialize(ctx context.Context, ownerID string, nc NewCourse, outline generate.Outline) (MaterializeResult, error) {
	// the caller may be gone by the time the outline arrives
	if err := ctx.Err(); err != nil {
		return MaterializeResult{}, errors.Wrap(err, "materializing course")
	}

	owner, err := svc.resolveOwner(ctx, ownerID)
	if err != nil {
		return MaterializeResult{}, err
	}

	tx, err := svc.db.BeginTxx(ctx, nil)
	if err != nil {
		return MaterializeResult{}, core.NewKindError(ErrPersistenceFailure, errors.Wrap(err, "beginning transaction"))
	}

	res, err := svc.writeTree(ctx, tx, owner, nc, outline)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			svc.logger.Error(fmt.Sprintf("rolling back course %q: %v", nc.Title, rbErr), rbErr)
		}
		return MaterializeResult{}, core.NewKindError(ErrPersistenceFailure, err)
	}
	if err = tx.Commit(); err != nil {
		return MaterializeResult{}, core.NewKindError(ErrPersistenceFailure, errors.Wrap(err, "committing transaction"))
	}
	return res, nil
}

func (svc *Service) writeTree(ctx context.Context, exec core.DBExecutor, owner Teacher, nc NewCourse, outline generate.Outline) (MaterializeResult, error) {
	now := time.Now().UTC()
	c := Course{
		ID:               uuid.New().String(),
		TeacherID:        owner.ID,
		Title:            nc.Title,
		Subject:          nc.Subject,
		GradeLevel:       nc.GradeLevel,
		Language:         nc.Language,
		State:            StateDraft,
		AIGenerated:      true,
		SyllabusSource:   nc.SyllabusSource,
		GenerationPrompt: core.TruncateString(nc.SourceText, svc.promptAuditChars),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := svc.repo.CreateCourse(ctx, c, exec); err != nil {
		return MaterializeResult{}, errors.Wrap(err, "inserting course")
	}

	res := MaterializeResult{CourseID: c.ID}
	for i, om := range outline.Modules {
		m := Module{
			ID:                 uuid.New().String(),
			CourseID:           c.ID,
			Title:              om.Title,
			Description:        om.Description,
			DurationMinutes:    om.DurationMinutes,
			LearningObjectives: om.LearningObjectives,
			OrderIndex:         i + 1,
		}
		if err := svc.repo.CreateModule(ctx, m, exec); err != nil {
			return MaterializeResult{}, errors.Wrapf(err, "inserting module %d", m.OrderIndex)
		}
		res.ModuleCount++

		for j, ol := range om.Lessons {
			l := Lesson{
				ID:                 uuid.New().String(),
				ModuleID:           m.ID,
				Title:              ol.Title,
				ContentText:        ol.ContentText,
				DurationMinutes:    ol.DurationMinutes,
				LearningObjectives: ol.LearningObjectives,
				Keywords:           ol.Keywords,
				OrderIndex:         j + 1,
			}
			if err := svc.repo.CreateLesson(ctx, l, exec); err != nil {
				return MaterializeResult{}, errors.Wrapf(err, "inserting lesson %d.%d", m.OrderIndex, l.OrderIndex)
			}
			res.LessonCount++

			if ol.Assessment == nil {
				continue
			}
			a := Assessment{
				ID:          uuid.New().String(),
				LessonID:    l.ID,
				Title:       ol.Assessment.Title,
				Questions:   questionsFromOutline(ol.Assessment.Questions),
				TotalPoints: ol.Assessment.TotalPoints(),
				CreatedAt:   now,
			}
			if err := svc.repo.CreateAssessment(ctx, a, exec); err != nil {
				return MaterializeResult{}, errors.Wrapf(err, "inserting assessment of lesson %d.%d", m.OrderIndex, l.OrderIndex)
			}
		}
	}
	return res, nil
}

func questionsFromOutline(oqs []generate.OutlineQuestion) Questions {
	qs := make(Questions, 0, len(oqs))
	for _, oq := range oqs {
		qs = append(qs, Question{
			Type:          oq.Type,
			Question:      oq.Question,
			Options:       oq.Options,
			CorrectAnswer: string(oq.CorrectAnswer),
			Points:        oq.Points,
		})
	}
	return qs
}

// Publish moves the course to published. It succeeds again, without changes, on a course the caller already published.
// Missing courses and courses of other teachers are both ErrNotFoundOrUnauthorized.
func (svc *Service) Publish(ctx context.Context, courseID, callerID string) error {
	if _, err := uuid.Parse(courseID); err != nil {
		return core.NewKindError(ErrNotFoundOrUnauthorized, nil)
	}

	n, err := svc.repo.PublishCourse(ctx, courseID, callerID, time.Now().UTC())
	if err != nil {
		return core.NewKindError(ErrPersistenceFailure, errors.Wrap(err, "publishing course"))
	}
	if n > 0 {
		svc.notifyPublished(ctx, courseID, callerID)
		return nil
	}

	c, err := svc.repo.GetOwnedCourse(ctx, courseID, callerID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return core.NewKindError(ErrNotFoundOrUnauthorized, nil)
		}
		return core.NewKindError(ErrPersistenceFailure, errors.Wrap(err, "finding course"))
	}
	if c.State == StatePublished {
		return nil
	}
	return core.NewKindError(ErrNotFoundOrUnauthorized, errors.Errorf("course in state %q", c.State))
}

// Get returns the whole course tree.
func (svc *Service) Get(ctx context.Context, courseID, callerID string) (Course, error) {
	if _, err := uuid.Parse(courseID); err != nil {
		return Course{}, core.NewKindError(ErrNotFoundOrUnauthorized, nil)
	}

	c, err := svc.repo.GetOwnedCourse(ctx, courseID, callerID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Course{}, core.NewKindError(ErrNotFoundOrUnauthorized, nil)
		}
		return Course{}, errors.Wrap(err, "finding course")
	}

	modules, err := svc.repo.QueryModules(ctx, c.ID)
	if err != nil {
		return Course{}, errors.Wrap(err, "querying modules")
	}
	lessons, err := svc.repo.QueryLessons(ctx, c.ID)
	if err != nil {
		return Course{}, errors.Wrap(err, "querying lessons")
	}
	assessments, err := svc.repo.QueryAssessments(ctx, c.ID)
	if err != nil {
		return Course{}, errors.Wrap(err, "querying assessments")
	}

	byLesson := make(map[string]*Assessment, len(assessments))
	for i := range assessments {
		byLesson[assessments[i].LessonID] = &assessments[i]
	}
	byModule := make(map[string][]Lesson, len(modules))
	for _, l := range lessons {
		l.Assessment = byLesson[l.ID]
		byModule[l.ModuleID] = append(byModule[l.ModuleID], l)
	}
	for i := range modules {
		modules[i].Lessons = byModule[modules[i].ID]
		if modules[i].Lessons == nil {
			modules[i].Lessons = []Lesson{}
		}
	}
	c.Modules = modules
	return c, nil
}

// ListByOwner returns the courses of the caller, newest first unless ordering says otherwise.
func (svc *Service) ListByOwner(ctx context.Context, callerID string, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error) {
	for _, ord := range ordering {
		if !isOrderingField(ord.Field) {
			return nil, core.NewValidationError(
				errors.Errorf("cannot order by %q", ord.Field),
				core.FieldError{Field: "ordering", Error: fmt.Sprintf("cannot order by %q", ord.Field)},
			)
		}
	}
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}

	courses, err := svc.repo.QueryOwnedCourses(ctx, callerID, filter, ordering)
	if err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	return courses, nil
}

func isOrderingField(field string) bool {
	for _, f := range OrderingFields {
		if f == field {
			return true
		}
	}
	return false
}

func (svc *Service) notifyPublished(ctx context.Context, courseID, callerID string) {
	c, err := svc.repo.GetOwnedCourse(ctx, courseID, callerID)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("course %s published, loading it for notification: %v", courseID, err), err)
		return
	}
	svc.notify(ctx, callerID, "Your course is published", "course_published", map[string]interface{}{
		"Title":    c.Title,
		"CourseID": c.ID,
	})
}

func (svc *Service) notifyGenerated(ctx context.Context, callerID string, nc NewCourse, res MaterializeResult) {
	svc.notify(ctx, callerID, "Your course draft is ready", "course_generated", map[string]interface{}{
		"Title":       nc.Title,
		"CourseID":    res.CourseID,
		"Source":      nc.SyllabusSource,
		"ModuleCount": res.ModuleCount,
		"LessonCount": res.LessonCount,
	})
}

// notify emails the teacher behind callerID, if they have an email address.
func (svc *Service) notify(ctx context.Context, callerID, subject, tmpl string, data map[string]interface{}) {
	t, err := svc.repo.GetTeacherByUserID(ctx, callerID)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("loading teacher %s for notification: %v", callerID, err), err)
		return
	}
	if t.Email == "" {
		return
	}
	data["Name"] = t.Name
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: t.Name, Address: t.Email}},
		Subject:      subject,
		TemplateName: tmpl,
		TemplateData: data,
	})
}
