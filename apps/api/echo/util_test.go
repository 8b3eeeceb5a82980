package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	. "github.com/ssriya/grader/apps/api/echo"
	"github.com/ssriya/grader/core"
	"github.com/ssriya/grader/core/gradebook"
	"github.com/ssriya/grader/core/user"
	"github.com/ssriya/grader/storage/cache"
	inmemdb "github.com/ssriya/grader/storage/database/inmem"
	testutil "github.com/ssriya/grader/tests"
)

const teacherPassword = "teach3r-pass"

type httpErr struct {
	Error string `json:"error"`
}

type fixture struct {
	app     Server
	conf    *core.Config
	logger  *testutil.Logger
	svc     *gradebook.Service
	users   user.Repository
	teacher user.User
	other   user.User // teaches nothing the tests look at
	alice   user.User // enrolled in class
	bob     user.User // not enrolled
	class   gradebook.Class
}

func newConf() *core.Config {
	return &core.Config{
		AppName:   "Grader",
		Env:       "TEST",
		TestMode:  true,
		SecretKey: "test-secret",
		Server: core.ServerConfig{
			DisableReqLogs:            true,
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: time.Hour,
		},
	}
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db := inmemdb.Open()
	users := inmemdb.NewUserRepository(db)
	usrSvc := user.NewService(users)
	logger := &testutil.Logger{}
	svc := gradebook.NewService(inmemdb.NewGradebookRepository(db), usrSvc, cache.NewNop(), logger)
	validate, translator := testutil.NewValidator()
	conf := newConf()

	f := &fixture{
		app: NewServer(&Options{
			Conf:         conf,
			Logger:       logger,
			Validate:     validate,
			Translator:   translator,
			UserSvc:      usrSvc,
			GradebookSvc: svc,
		}),
		conf:    conf,
		logger:  logger,
		svc:     svc,
		users:   users,
		teacher: testutil.CreateUser(t, users, "Ms. Johnson", "johnson@school.test", teacherPassword, user.RoleTeacher),
		other:   testutil.CreateUser(t, users, "Mr. Green", "green@school.test", "", user.RoleTeacher),
		alice:   testutil.CreateUser(t, users, "Alice Smith", "alice@school.test", "", user.RoleStudent),
		bob:     testutil.CreateUser(t, users, "Bob Wilson", "bob@school.test", "", user.RoleStudent),
	}

	ctx := context.Background()
	var err error
	f.class, err = svc.CreateClass(ctx, f.teacher.ID, gradebook.NewClass{Name: "Algebra I", Section: "Period 1"})
	require.NoError(t, err)
	_, err = svc.Enroll(ctx, f.class.ID, gradebook.Enroll{StudentEmail: f.alice.Email})
	require.NoError(t, err)
	return f
}

func (f *fixture) token(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := GenerateToken(f.conf, GetUserClaims(f.conf, usr))
	require.NoError(t, err)
	return token
}

// do sends body as JSON (when not nil) and records the response.
func (f *fixture) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.app.ServeHTTP(rec, req)
	return rec
}

// upload posts file as the multipart `file` field.
func (f *fixture) upload(t *testing.T, path, token string, file io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if file != nil {
		fw, err := mw.CreateFormFile("file", "upload.xlsx")
		require.NoError(t, err)
		_, err = io.Copy(fw, file)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	f.app.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) classPath(suffix string) string {
	return "/v1/classes/" + f.class.ID + suffix
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

// workbook builds an in-memory .xlsx whose first sheet holds rows.
func workbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		start, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		row := row
		require.NoError(t, f.SetSheetRow(sheet, start, &row))
	}
	buf := new(bytes.Buffer)
	require.NoError(t, f.Write(buf))
	return buf
}
