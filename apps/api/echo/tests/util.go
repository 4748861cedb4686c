package tests

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	echoapi "github.com/trezcool/hesabu/apps/api/echo"
	"github.com/trezcool/hesabu/core"
	"github.com/trezcool/hesabu/core/assignment"
	"github.com/trezcool/hesabu/core/auth"
	"github.com/trezcool/hesabu/fs"
	"github.com/trezcool/hesabu/services/email"
	"github.com/trezcool/hesabu/services/logger"
	"github.com/trezcool/hesabu/storage/database/sqlx"
	"github.com/trezcool/hesabu/tests"
)

const instructorPassword = "abacus-rocks"

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testApp struct {
	conf    *core.Config
	server  *echoapi.Server
	repo    assignment.Repository
	mailSvc *emailsvc.ConsoleServiceMock
	token   string
}

func setup(t *testing.T) *testApp {
	conf := core.NewTestConfig()
	hash, err := auth.HashPassword(instructorPassword)
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	conf.Auth.InstructorPasswordHash = hash

	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)

	if err = core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf); err != nil {
		t.Fatalf("setup() failed: %v", err)
	}

	// set up DB & repos
	db := testutil.PrepareDB(t)
	repo := sqlxrepos.NewAssignmentRepository(db)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	asgSvc := assignment.NewService(repo, mailSvc)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	assignment.InitValidators(validate, translator)

	// set up server
	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:          conf,
		Logger:        logger,
		AssignmentSvc: asgSvc,
		Validate:      validate,
		Translator:    translator,
	})
	t.Cleanup(func() { _ = server.Close() })

	return &testApp{
		conf:    conf,
		server:  server,
		repo:    repo,
		mailSvc: mailSvc,
		token:   getToken(t, conf, "mrs k"),
	}
}

type httpErr struct {
	Error string `json:"error"`
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

func (app *testApp) do(tt httpTest) *httptest.ResponseRecorder {
	method := tt.method
	if method == "" {
		method = http.MethodGet
	}
	req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
	app.server.ServeHTTP(rec, req)
	return rec
}

func getToken(t *testing.T, conf *core.Config, name string) string {
	token, err := auth.GenerateToken(auth.NewInstructorClaims(name, conf), conf.SecretKey)
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

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
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
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
