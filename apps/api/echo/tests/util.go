package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/vidyaverse/apps/api/echo"
	"github.com/trezcool/vidyaverse/core"
	"github.com/trezcool/vidyaverse/core/attendance"
	"github.com/trezcool/vidyaverse/core/fees"
	"github.com/trezcool/vidyaverse/core/promotion"
	"github.com/trezcool/vidyaverse/core/report"
	"github.com/trezcool/vidyaverse/core/school"
	appfs "github.com/trezcool/vidyaverse/fs"
	"github.com/trezcool/vidyaverse/services/email"
	"github.com/trezcool/vidyaverse/services/logger"
	"github.com/trezcool/vidyaverse/services/render"
	dummydb "github.com/trezcool/vidyaverse/storage/database/dummy"
	"github.com/trezcool/vidyaverse/tests"
)

const secretKey = "test-secret"

var (
	conf = &core.Config{
		AppName:             "VidyaVerse",
		SecretKey:           secretKey,
		TestMode:            true,
		CurrencySymbol:      "₹",
		ReminderCountryCode: "91",
		DefaultFromEmail:    "office@school.test",
	}

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
)

// memCache is a ReportCache keeping entries in memory by generation and counting invalidations.
type memCache struct {
	mu            sync.Mutex
	entries       map[string][]byte
	invalidations int
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	slot := fmt.Sprintf("%d:%s", c.invalidations, key)
	body, ok := c.entries[slot]
	return body, slot, ok
}

func (c *memCache) Set(_ context.Context, slot string, body []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[slot] = body
}

func (c *memCache) Invalidate(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidations++
}

type testApp struct {
	server *Server
	store  school.Store
	db     *dummydb.DB
	cache  *memCache
}

func setup(t *testing.T) testApp {
	t.Helper()

	// set up DB & repos
	store, db := testutil.NewStore(t)
	if err := store.SaveSchoolProfile(context.Background(), school.SchoolProfile{Name: "Green Valley School"}); err != nil {
		t.Fatalf("SaveSchoolProfile() failed: %v", err)
	}

	// set up services
	logger := logsvc.NewDiscardLogger()
	tmpls, err := core.ParseEmailTemplates(appfs.FS, "templates/email", true)
	if err != nil {
		t.Fatalf("ParseEmailTemplates() failed: %v", err)
	}
	mailSvc := emailsvc.NewConsoleServiceMock(conf, tmpls, logger)
	money := core.NewMoneyFormatter(conf.CurrencySymbol)
	htmlRenderer, err := render.NewHTMLRenderer(appfs.FS, money)
	if err != nil {
		t.Fatalf("NewHTMLRenderer() failed: %v", err)
	}
	validate, translator := core.NewValidator()
	cache := &memCache{entries: make(map[string][]byte)}

	// set up server
	server := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		DisableReqLogs: true,
		Validate:       validate,
		Translator:     translator,
		ReportSvc:      report.NewService(store),
		FeesSvc:        fees.NewService(store, mailSvc, conf, logger),
		AttendanceSvc:  attendance.NewService(store, logger),
		PromotionSvc:   promotion.NewService(store, logger),
		Renderers:      render.NewRegistry(htmlRenderer, render.CSVRenderer{}, render.XLSXRenderer{}, render.NewPDFRenderer(money)),
		Cache:          cache,
	})
	return testApp{server: server, store: store, db: db, cache: cache}
}

func (app testApp) do(req *http.Request, rec *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	app.server.ServeHTTP(rec, req)
	return rec
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

func getToken(t *testing.T, isAdmin bool) string {
	claims := &Claims{
		StandardClaims: jwt.StandardClaims{Subject: "staff-1", Issuer: "identity"},
		Username:       "office",
		IsAdmin:        isAdmin,
	}
	token, err := GenerateToken(claims, secretKey)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
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
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
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
