package tests

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"

	. "github.com/included-edu/included/apps/api/echo"
	"github.com/included-edu/included/core"
	"github.com/included-edu/included/core/course"
	"github.com/included-edu/included/core/extract"
	"github.com/included-edu/included/core/generate"
	"github.com/included-edu/included/core/user"
	emailsvc "github.com/included-edu/included/services/email"
	llmsvc "github.com/included-edu/included/services/llm"
	"github.com/included-edu/included/storage/database/sqlxrepos"
	testutil "github.com/included-edu/included/tests"
)

var errMissingToken = httpErr{Code: "unauthorized", Error: "missing or malformed jwt"}

// fakeLLM is an OpenAI compatible server answering every completion with outline.
type fakeLLM struct {
	*httptest.Server
	calls   int32
	outline string
}

func newFakeLLM(t *testing.T, outline string) *fakeLLM {
	f := &fakeLLM{outline: outline}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.calls, 1)
		res := map[string]interface{}{
			"choices": []interface{}{map[string]interface{}{
				"message":       map[string]string{"role": "assistant", "content": f.outline},
				"finish_reason": "stop",
			}},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(res)
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeLLM) Calls() int { return int(atomic.LoadInt32(&f.calls)) }

type testApp struct {
	*Server
	conf       *core.Config
	db         *sqlx.DB
	usrRepo    user.Repository
	courseRepo course.Repository
	mailSvc    *emailsvc.ConsoleServiceMock
	llm        *fakeLLM
}

func setup(t *testing.T) *testApp {
	conf := testutil.NewConfig(t)
	llm := newFakeLLM(t, `{"modules": []}`)
	conf.Generation.OpenAIBaseURL = llm.URL
	conf.Generation.OpenAIApiKey = "sk-test"

	// set up DB & repos
	db := testutil.PrepareDB(t, conf)
	usrRepo := sqlxrepos.NewUserRepository(db)
	courseRepo := sqlxrepos.NewCourseRepository(db)

	// set up services
	validate, translator := testutil.NewValidator()
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	courseSvc := course.NewService(db, courseRepo, mailSvc, core.NopLogger{}, conf)
	pipeline := course.NewPipeline(
		extract.NewExtractor(),
		generate.NewGenerator(llmsvc.NewOpenAIClient(conf), validate, conf),
		courseSvc,
		validate,
		core.NopLogger{},
		conf,
	)

	// set up server
	server := NewServer(conf, core.NopLogger{}, &Deps{
		UserSvc:    user.NewService(usrRepo),
		CourseSvc:  courseSvc,
		Pipeline:   pipeline,
		Validate:   validate,
		Translator: translator,
	})
	return &testApp{
		Server:     server,
		conf:       conf,
		db:         db,
		usrRepo:    usrRepo,
		courseRepo: courseRepo,
		mailSvc:    mailSvc,
		llm:        llm,
	}
}

type httpErr struct {
	Code   string            `json:"code"`
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

type formFile struct {
	field, filename, contentType string
	data                         []byte
}

// newMultipartRequest builds an authenticated multipart/form-data request.
func newMultipartRequest(t *testing.T, path, token string, fields map[string]string, files ...formFile) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("newMultipartRequest() failed: %v", err)
		}
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.filename+`"`)
		h.Set("Content-Type", f.contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatalf("newMultipartRequest() failed: %v", err)
		}
		_, _ = part.Write(f.data)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("newMultipartRequest() failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, httptest.NewRecorder()
}

func getToken(t *testing.T, usr user.User, conf *core.Config) string {
	token, err := GenerateToken(GetUserClaims(usr, conf), conf)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	assert.Equal(t, tt.wantCode, rec.Code, "code")
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
