package tests

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/included-edu/included/apps/api/echo"
	"github.com/included-edu/included/core/course"
	"github.com/included-edu/included/core/extract"
	"github.com/included-edu/included/core/generate"
	"github.com/included-edu/included/core/user"
	testutil "github.com/included-edu/included/tests"
)

const twoModuleOutline = `{"modules": [
  {"title": "Addition", "description": "Adding whole numbers", "duration_minutes": 60, "learning_objectives": ["add within 1000"],
   "lessons": [
     {"title": "Adding tens", "content_text": "10 + 20 = 30", "duration_minutes": 30, "keywords": ["sum"],
      "assessment": {"title": "Quiz", "questions": [
        {"type": "multiple_choice", "question": "10 + 20?", "options": ["20", "30"], "correct_answer": "30", "points": 2}]}},
     {"title": "Adding hundreds", "content_text": "100 + 200 = 300", "duration_minutes": 30}]},
  {"title": "Subtraction", "description": "Taking away", "duration_minutes": 30,
   "lessons": [{"title": "Taking away tens", "content_text": "30 - 10 = 20", "duration_minutes": 30}]}
]}`

var grade4Fields = map[string]string{
	"title":       "Mathematics Grade 4",
	"subject":     "Mathematics",
	"grade_level": "4",
	"language":    "en",
}

func syllabusDOCX(paragraphs ...string) formFile {
	return formFile{
		field:       "syllabus",
		filename:    "maths.docx",
		contentType: string(extract.MediaTypeDOCX),
		data:        testutil.DOCX(paragraphs...),
	}
}

func Test_courseApi_endToEnd(t *testing.T) {
	app := setup(t)
	app.llm.outline = twoModuleOutline
	amina, _ := testutil.CreateTeacher(t, app.usrRepo, app.courseRepo, "Amina", "amina", "amina@example.com", "")
	token := getToken(t, amina, app.conf)

	// generate
	req, rec := newMultipartRequest(t, "/v1/courses/generate", token, grade4Fields,
		syllabusDOCX("Students learn addition and subtraction..."))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var res course.MaterializeResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.NotEmpty(t, res.CourseID)
	assert.Equal(t, 2, res.ModuleCount)
	assert.Equal(t, 3, res.LessonCount)
	assert.Equal(t, 1, app.llm.Calls())

	// retrieve
	req, rec = newAuthRequest(http.MethodGet, "/v1/courses/"+res.CourseID, token)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var c course.Course
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	assert.Equal(t, course.StateDraft, c.State)
	require.Len(t, c.Modules, 2)
	assert.Equal(t, "Subtraction", c.Modules[1].Title)
	assert.Equal(t, 2, c.Modules[1].OrderIndex)

	// publish
	req, rec = newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/courses/%s/publish", res.CourseID), token)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, SuccessResponse{Success: "course published"})}, rec)

	published, err := app.courseRepo.GetOwnedCourse(context.Background(), res.CourseID, amina.ID)
	require.NoError(t, err)
	assert.Equal(t, course.StatePublished, published.State)
	assert.NotNil(t, published.PublishedAt)

	// generated + published notifications
	assert.Len(t, app.mailSvc.SentMessages(), 2)
}

func Test_courseApi_generate_rejected(t *testing.T) {
	app := setup(t)
	app.llm.outline = twoModuleOutline
	amina, _ := testutil.CreateTeacher(t, app.usrRepo, app.courseRepo, "Amina", "amina", "", "")
	student := testutil.CreateUser(t, app.usrRepo, "Sam", "sam", "", "", []string{user.RoleStudent}, true)
	noProfile := testutil.CreateUser(t, app.usrRepo, "Nadia", "nadia", "", "", []string{user.RoleTeacher}, true)
	token := getToken(t, amina, app.conf)

	badGrade := map[string]string{"title": "Maths", "subject": "Mathematics", "grade_level": "13", "language": "en"}
	big := syllabusDOCX("x")
	big.data = make([]byte, app.conf.Generation.MaxUploadBytes+1)

	tests := []struct {
		httpTest
		fields map[string]string
		files  []formFile
	}{
		{
			httpTest: httpTest{name: "auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
			fields:   grade4Fields,
			files:    []formFile{syllabusDOCX("text")},
		},
		{
			httpTest: httpTest{
				name: "student", token: getToken(t, student, app.conf), wantCode: http.StatusForbidden,
				wantData: marchallObj(t, httpErr{Code: "forbidden", Error: course.ErrForbidden.Error()}),
			},
			fields: grade4Fields,
			files:  []formFile{syllabusDOCX("text")},
		},
		{
			httpTest: httpTest{
				name: "no teacher profile", token: getToken(t, noProfile, app.conf), wantCode: http.StatusForbidden,
				wantData: marchallObj(t, httpErr{Code: "owner_not_found", Error: course.ErrOwnerNotFound.Error()}),
			},
			fields: grade4Fields,
			files:  []formFile{syllabusDOCX("text")},
		},
		{
			httpTest: httpTest{
				name: "grade level", token: token, wantCode: http.StatusBadRequest,
				wantData: marchallObj(t, httpErr{Code: "invalid_input", Error: "invalid input", Fields: map[string]string{
					"grade_level": "grade level must be between 1 and 12",
				}}),
			},
			fields: badGrade,
			files:  []formFile{syllabusDOCX("text")},
		},
		{
			httpTest: httpTest{name: "no syllabus", token: token, wantCode: http.StatusBadRequest},
			fields:   grade4Fields,
		},
		{
			httpTest: httpTest{
				name: "private source url", token: token, wantCode: http.StatusBadRequest,
				wantData: marchallObj(t, httpErr{Code: "invalid_input", Error: "invalid input", Fields: map[string]string{
					"source_url": "must point to a public host",
				}}),
			},
			fields: map[string]string{
				"title": "Maths", "subject": "Mathematics", "grade_level": "4", "language": "en",
				"source_url": "http://169.254.169.254/latest/meta-data/",
			},
		},
		{
			httpTest: httpTest{
				name: "plain text", token: token, wantCode: http.StatusUnsupportedMediaType,
				wantData: marchallObj(t, httpErr{Code: "unsupported_format", Error: extract.ErrUnsupportedFormat.Error()}),
			},
			fields: grade4Fields,
			files:  []formFile{{field: "syllabus", filename: "maths.txt", contentType: "text/plain", data: []byte("Addition and subtraction")}},
		},
		{
			httpTest: httpTest{
				name: "corrupt docx", token: token, wantCode: http.StatusUnprocessableEntity,
				wantData: marchallObj(t, httpErr{Code: "extraction_failure", Error: extract.ErrExtractionFailure.Error()}),
			},
			fields: grade4Fields,
			files:  []formFile{{field: "syllabus", filename: "maths.docx", contentType: string(extract.MediaTypeDOCX), data: []byte("not a zip")}},
		},
		{
			httpTest: httpTest{
				name: "too large", token: token, wantCode: http.StatusRequestEntityTooLarge,
			},
			fields: grade4Fields,
			files:  []formFile{big},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newMultipartRequest(t, "/v1/courses/generate", tt.token, tt.fields, tt.files...)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt.httpTest, rec)
		})
	}

	assert.Equal(t, 0, app.llm.Calls(), "the language model is never called")
	courses, err := app.courseRepo.QueryOwnedCourses(context.Background(), amina.ID, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, courses)
}

func Test_courseApi_generate_upstreamFailures(t *testing.T) {
	tests := []struct {
		name     string
		outline  string
		wantCode int
		wantData httpErr
	}{
		{
			name: "not json", outline: "Sorry, I cannot help with that.", wantCode: http.StatusFailedDependency,
			wantData: httpErr{Code: "schema_violation", Error: generate.ErrSchemaViolation.Error()},
		},
		{
			name: "missing modules", outline: `{"title": "Maths"}`, wantCode: http.StatusFailedDependency,
			wantData: httpErr{Code: "schema_violation", Error: generate.ErrSchemaViolation.Error()},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := setup(t)
			app.llm.outline = tt.outline
			amina, _ := testutil.CreateTeacher(t, app.usrRepo, app.courseRepo, "Amina", "amina", "", "")

			req, rec := newMultipartRequest(t, "/v1/courses/generate", getToken(t, amina, app.conf), grade4Fields, syllabusDOCX("text"))
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, httpTest{wantCode: tt.wantCode, wantData: marchallObj(t, tt.wantData)}, rec)
			assert.Equal(t, 1, app.llm.Calls())
		})
	}

	t.Run("upstream down", func(t *testing.T) {
		app := setup(t)
		app.llm.Close()
		amina, _ := testutil.CreateTeacher(t, app.usrRepo, app.courseRepo, "Amina", "amina", "", "")

		req, rec := newMultipartRequest(t, "/v1/courses/generate", getToken(t, amina, app.conf), grade4Fields, syllabusDOCX("text"))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadGateway, rec.Code)

		var res httpErr
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.Equal(t, "generation_failure", res.Code)
	})
}

func Test_courseApi_publish(t *testing.T) {
	app := setup(t)
	app.llm.outline = twoModuleOutline
	amina, _ := testutil.CreateTeacher(t, app.usrRepo, app.courseRepo, "Amina", "amina", "", "")
	brian, _ := testutil.CreateTeacher(t, app.usrRepo, app.courseRepo, "Brian", "brian", "", "")
	aminaToken, brianToken := getToken(t, amina, app.conf), getToken(t, brian, app.conf)

	req, rec := newMultipartRequest(t, "/v1/courses/generate", aminaToken, grade4Fields, syllabusDOCX("Fractions"))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res course.MaterializeResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))

	path := "/v1/courses/" + res.CourseID + "/publish"
	notFound := marchallObj(t, httpErr{Code: "not_found", Error: course.ErrNotFoundOrUnauthorized.Error()})
	published := marchallObj(t, SuccessResponse{Success: "course published"})

	tests := []httpTest{
		{name: "auth required", path: path, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "other teacher", path: path, token: brianToken, wantCode: http.StatusNotFound, wantData: notFound},
		{name: "unknown course", path: "/v1/courses/42/publish", token: aminaToken, wantCode: http.StatusNotFound, wantData: notFound},
		{name: "owner", path: path, token: aminaToken, wantCode: http.StatusOK, wantData: published},
		{name: "owner again", path: path, token: aminaToken, wantCode: http.StatusOK, wantData: published},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.name == "other teacher" {
				defer func() {
					c, err := app.courseRepo.GetOwnedCourse(context.Background(), res.CourseID, amina.ID)
					require.NoError(t, err)
					assert.Equal(t, course.StateDraft, c.State)
				}()
			}
			req, rec := newAuthRequest(http.MethodPost, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_courseApi_query(t *testing.T) {
	app := setup(t)
	app.llm.outline = twoModuleOutline
	amina, _ := testutil.CreateTeacher(t, app.usrRepo, app.courseRepo, "Amina", "amina", "", "")
	brian, _ := testutil.CreateTeacher(t, app.usrRepo, app.courseRepo, "Brian", "brian", "", "")
	aminaToken := getToken(t, amina, app.conf)

	generate := func(token, title string) string {
		fields := map[string]string{"title": title, "subject": "Mathematics", "grade_level": "4", "language": "en"}
		req, rec := newMultipartRequest(t, "/v1/courses/generate", token, fields, syllabusDOCX("text"))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var res course.MaterializeResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		return res.CourseID
	}
	fractions := generate(aminaToken, "Fractions")
	_ = generate(aminaToken, "Addition")
	_ = generate(getToken(t, brian, app.conf), "Geometry")

	req, rec := newAuthRequest(http.MethodPost, "/v1/courses/"+fractions+"/publish", aminaToken)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	tests := []struct {
		httpTest
		wantTitles []string
	}{
		{httpTest: httpTest{name: "by title", path: "/v1/courses?ordering=title", wantCode: http.StatusOK}, wantTitles: []string{"Addition", "Fractions"}},
		{httpTest: httpTest{name: "by title desc", path: "/v1/courses?ordering=-title", wantCode: http.StatusOK}, wantTitles: []string{"Fractions", "Addition"}},
		{httpTest: httpTest{name: "published", path: "/v1/courses?state=published", wantCode: http.StatusOK}, wantTitles: []string{"Fractions"}},
		{httpTest: httpTest{name: "unknown state", path: "/v1/courses?state=archived", wantCode: http.StatusBadRequest}},
		{httpTest: httpTest{
			name: "unknown ordering", path: "/v1/courses?ordering=password", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Code: "invalid_input", Error: "invalid input", Fields: map[string]string{
				"ordering": `cannot order by "password"; use one of created_at, updated_at, published_at, title, subject, grade_level`,
			}}),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, aminaToken)
			app.ServeHTTP(rec, req)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantTitles == nil {
				checkCodeAndData(t, tt.httpTest, rec)
				return
			}
			var courses []course.Course
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &courses))
			got := make([]string, 0, len(courses))
			for _, c := range courses {
				got = append(got, c.Title)
			}
			assert.Equal(t, tt.wantTitles, got)
		})
	}
}
