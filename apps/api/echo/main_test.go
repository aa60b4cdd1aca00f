package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/mock"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/auth"
	"github.com/trezcool/shule/core/class"
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/fs"
	"github.com/trezcool/shule/services/email"
	"github.com/trezcool/shule/services/logger"
	"github.com/trezcool/shule/storage/database/inmem"
	"github.com/trezcool/shule/tests"
)

type photoStoreMock struct {
	mock.Mock
}

func (m *photoStoreMock) UploadPhoto(ctx context.Context, photo core.Photo) (string, error) {
	args := m.Called(ctx, photo)
	return args.String(0), args.Error(1)
}

type testApp struct {
	Server
	conf      *core.Config
	issuer    *auth.Issuer
	usrRepo   user.Repository
	classRepo class.Repository
	mailSvc   *emailsvc.ConsoleServiceMock
	photos    *photoStoreMock
}

func setup(t *testing.T) *testApp {
	t.Helper()
	conf := testutil.NewConfig()

	// set up DB & repos
	db := inmemdb.NewDB()
	usrRepo := inmemdb.NewUserRepository(db)
	classRepo := inmemdb.NewClassRepository(db)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	tmpls, err := core.ParseEmailTemplates(appfs.FS, conf)
	if err != nil {
		t.Fatalf("ParseEmailTemplates() failed: %v", err)
	}

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(tmpls, conf)
	usrSvc := user.NewService(usrRepo, classRepo, mailSvc, conf)
	classSvc := class.NewService(classRepo, usrSvc)
	issuer := auth.NewIssuer(conf.SecretKey, conf.JWTExpirationDelta)
	photos := new(photoStoreMock)

	// set up server
	app := NewServer(ServerDeps{
		Conf:       conf,
		Logger:     logsvc.NewNop(),
		Issuer:     issuer,
		UserSvc:    usrSvc,
		ClassSvc:   classSvc,
		PhotoStore: photos,
		Validate:   validate,
		Translator: translator,
	})
	return &testApp{
		Server:    app,
		conf:      conf,
		issuer:    issuer,
		usrRepo:   usrRepo,
		classRepo: classRepo,
		mailSvc:   mailSvc,
		photos:    photos,
	}
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

func (app *testApp) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	app.ServeHTTP(rec, req)
	return rec
}

func getToken(t *testing.T, app *testApp, usr user.User) string {
	t.Helper()
	token, err := app.issuer.Issue(usr.ID, usr.Role().String())
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func errBody(t *testing.T, msg string) []byte {
	return marshallObj(t, errorResponse{Success: false, Error: msg})
}

func dataBody(t *testing.T, data interface{}) []byte {
	return marshallObj(t, dataResponse{Success: true, Data: data})
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
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
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

func runHTTPTests(t *testing.T, app *testApp, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		if tt.method == "" {
			tt.method = http.MethodGet
		}
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
