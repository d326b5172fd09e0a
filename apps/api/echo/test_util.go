package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/stretchr/testify/assert"

	"github.com/bala2006-m/smart-school-server-sub001/core"
	"github.com/bala2006-m/smart-school-server-sub001/core/attendance"
	"github.com/bala2006-m/smart-school-server-sub001/core/school"
	"github.com/bala2006-m/smart-school-server-sub001/core/tenant"
	emailsvc "github.com/bala2006-m/smart-school-server-sub001/services/email"
	inmemdb "github.com/bala2006-m/smart-school-server-sub001/storage/database/inmem"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

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
	extra    interface{}
}

func testConf() *core.Config {
	return &core.Config{
		TestMode:         true,
		Env:              "TEST",
		AppName:          "SmartSchool",
		SecretKey:        "secret",
		DefaultFromEmail: mail.Address{Address: "noreply@localhost"},
		Server: core.ServerConfig{
			Addr:                       ":8000",
			DeviceTokenExpirationDelta: time.Hour,
		},
		Report: core.ReportConfig{
			Recipients: []mail.Address{{Address: "head@school.test"}},
		},
	}
}

// testResolver serves known schools from a single shared handle; the inmem
// repositories scope all data by school_id themselves.
type testResolver struct {
	known map[int]struct{}
	h     *tenant.Handle
}

func (r testResolver) Resolve(ctx context.Context, tc tenant.Context) (*tenant.Handle, error) {
	if _, ok := r.known[tc.SchoolID]; !ok {
		return nil, errors.Wrapf(tenant.ErrUnknownTenant, "school %d", tc.SchoolID)
	}
	return r.h, nil
}

func (r testResolver) Cloud(ctx context.Context) (*tenant.Handle, error) {
	return r.h, nil
}

type testLogger struct{}

func (testLogger) Debug(string, ...interface{}) {}
func (testLogger) Info(string, ...interface{})  {}
func (testLogger) Warn(string, ...interface{})  {}
func (testLogger) Error(string, ...interface{}) {}
func (testLogger) Fatal(string, ...interface{}) {}

func newTestServer(t *testing.T, schools ...int) (*Server, *core.Config) {
	t.Helper()

	conf := testConf()
	resolver := testResolver{known: make(map[int]struct{}), h: &tenant.Handle{}}
	for _, id := range schools {
		resolver.known[id] = struct{}{}
	}

	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)

	db := inmemdb.NewDB()
	attRepo := inmemdb.NewAttendanceRepository(db)
	mailSvc := emailsvc.NewConsoleServiceMock(conf)

	server := NewServer(ServerDeps{
		Conf:          conf,
		Logger:        testLogger{},
		AttendanceSvc: attendance.NewService(resolver, attRepo, validate, translator, conf),
		ReportSvc:     attendance.NewReportService(resolver, attRepo, mailSvc, conf),
		SchoolSvc:     school.NewService(resolver, inmemdb.NewSchoolRepository(db)),
		Validate:      validate,
		Translator:    translator,
	})
	return server, conf
}

func getToken(t *testing.T, conf *core.Config, tc tenant.Context) string {
	t.Helper()
	token, err := GenerateDeviceToken(conf, GetDeviceClaims(conf, tc))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
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

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
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
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	return assert.ObjectsAreEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(string(tt.wantData)),
			B:        difflib.SplitLines(rec.Body.String()),
			FromFile: "want",
			ToFile:   "got",
			Context:  2,
		})
		t.Errorf("failed! data mismatch:\n%s", diff)
	}
}
