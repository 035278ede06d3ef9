package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ajharbinger/dealflowos/internal/auth"
	"github.com/ajharbinger/dealflowos/internal/clock"
	"github.com/ajharbinger/dealflowos/internal/repository"
	"github.com/ajharbinger/dealflowos/internal/scanner"
	"github.com/ajharbinger/dealflowos/internal/services"
	"github.com/ajharbinger/dealflowos/pkg/config"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "api-test-secret"

var testNow = time.Date(2024, 6, 3, 15, 0, 0, 0, time.UTC)

type testServer struct {
	router *gin.Engine
	repos  *repository.Repositories
	clock  *clock.Manual
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{JWTSecret: testSecret, StoreDriver: "memory", DefaultInvestorMultiplier: 0.7}
	repos := repository.NewMemoryRepositories()
	clk := clock.NewManual(testNow)
	svc := services.NewServices(services.Dependencies{Repos: repos, Clock: clk, ReminderOffsets: []int{-60, -15}})

	scanCfg := scanner.Config{GracePeriod: 15 * time.Minute}
	sweeper := scanner.New(repos.Reminder, repos.Event, clk, nil, scanCfg)
	health := scanner.NewHealthMonitor(clk, time.Hour)
	runner := scanner.NewRunner(sweeper, time.Minute, scanner.WithHealthMonitor(health))

	router := gin.New()
	SetupRoutes(router, Dependencies{
		Config:   cfg,
		Services: svc,
		Runner:   runner,
		Health:   health,
		Scanner:  sweeper.Config(),
	})
	return &testServer{router: router, repos: repos, clock: clk}
}

func token(t *testing.T, org, role string) string {
	t.Helper()
	tok, _, err := auth.NewJWTService(testSecret).GenerateToken(auth.Claims{UserID: "user-1", OrgID: org, Role: role}, time.Hour)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path, org string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if org != "" {
		role := "member"
		if org == "admin-org" {
			role = auth.RoleAdmin
		}
		req.Header.Set("Authorization", "Bearer "+token(t, org, role))
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var out map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w, out
}

func nested(m map[string]interface{}, key string) map[string]interface{} {
	v, _ := m[key].(map[string]interface{})
	return v
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	w, body := s.do(t, "GET", "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "memory", body["store"])
}

func TestRequiresAuthentication(t *testing.T) {
	s := newTestServer(t)
	w, _ := s.do(t, "GET", "/api/v1/leads", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDealNotFoundAndBadStage(t *testing.T) {
	s := newTestServer(t)

	w, body := s.do(t, "GET", "/api/v1/deals/"+uuid.NewString(), "org-1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", body["code"])

	w, body = s.do(t, "POST", "/api/v1/deals/"+uuid.NewString()+"/stage", "org-1", gin.H{"stage": "qualified"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_STAGE", body["code"])

	w, _ = s.do(t, "GET", "/api/v1/deals/not-a-uuid", "org-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLeadToClosedDealFlow(t *testing.T) {
	s := newTestServer(t)

	w, body := s.do(t, "POST", "/api/v1/leads", "org-1", gin.H{
		"address": "123 Main St, Austin, TX 78701",
		"financials": gin.H{
			"arv":               250000,
			"estimated_repairs": 30000,
			"offer_price":       120000,
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	lead := nested(body, "lead")
	leadID := lead["id"].(string)
	assert.Equal(t, 145000.0, lead["moa"])

	w, _ = s.do(t, "POST", "/api/v1/leads", "org-1", gin.H{"address": "123 Main St, Austin, TX 78701"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, body = s.do(t, "POST", "/api/v1/leads/"+leadID+"/deal", "org-1", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	dealID := nested(body, "deal")["id"].(string)

	w, _ = s.do(t, "POST", "/api/v1/leads/"+leadID+"/deal", "org-1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, body = s.do(t, "POST", "/api/v1/deals/"+dealID+"/stage", "org-1", gin.H{
		"stage":                   "CLOSED_WON",
		"assignment_fee_expected": "abc",
		"assignment_fee_actual":   12500,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	deal := nested(body, "deal")
	assert.Equal(t, "CLOSED_WON", deal["stage"])
	assert.Equal(t, 12500.0, deal["assignment_fee_actual"])
	assert.Nil(t, deal["assignment_fee_expected"])
	assert.NotNil(t, deal["closed_at"])

	w, body = s.do(t, "GET", "/api/v1/deals/summary", "org-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["stages"], 7)

	// other orgs cannot see the deal
	w, _ = s.do(t, "GET", "/api/v1/deals/"+dealID, "org-2", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLeadValidation(t *testing.T) {
	s := newTestServer(t)

	w, body := s.do(t, "POST", "/api/v1/leads", "org-1", gin.H{"email": "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])

	w, _ = s.do(t, "GET", "/api/v1/leads?qualified=maybe", "org-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIngestBatchDedup(t *testing.T) {
	s := newTestServer(t)

	rows := []gin.H{
		{"address": "9 Oak Ave, Dallas, TX 75201"},
		{"address": "9 oak avenue, dallas, tx 75201", "description": "vacant lot"},
		{"owner_name": "no address"},
	}
	w, body := s.do(t, "POST", "/api/v1/leads/batch", "org-1", gin.H{"rows": rows})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	result := nested(body, "result")
	assert.Equal(t, 3.0, result["total"])
	assert.Equal(t, 1.0, result["created"])
	assert.Equal(t, 1.0, result["updated"])
	assert.Equal(t, 1.0, result["failed"])

	w, body = s.do(t, "GET", "/api/v1/leads", "org-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, body["count"])
}

func TestImportCSV(t *testing.T) {
	s := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "leads.csv")
	require.NoError(t, err)
	_, _ = part.Write([]byte("address,arv\n\"1 Elm St, Austin, TX 78701\",200000\n\"2 Elm St, Austin, TX 78701\",\n"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/v1/leads/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token(t, "org-1", "member"))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"created":2`)

	req = httptest.NewRequest("POST", "/api/v1/leads/import", strings.NewReader("owner\nbob\n"))
	req.Header.Set("Content-Type", "text/csv")
	req.Header.Set("Authorization", "Bearer "+token(t, "org-1", "member"))
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnderwritingPreview(t *testing.T) {
	s := newTestServer(t)

	w, body := s.do(t, "POST", "/api/v1/underwriting/preview", "org-1", gin.H{
		"arv": 250000, "estimated_repairs": 30000, "offer_price": 120000,
	})
	require.Equal(t, http.StatusOK, w.Code)
	result := nested(body, "result")
	assert.Equal(t, 145000.0, result["moa"])
	assert.Equal(t, 80.0, result["deal_score"])
}

func TestEventRemindersAndScanner(t *testing.T) {
	s := newTestServer(t)

	start := testNow.Add(30 * time.Minute)
	w, body := s.do(t, "POST", "/api/v1/events", "org-1", gin.H{
		"title":    "Seller walkthrough",
		"start_at": start,
		"end_at":   start.Add(time.Hour),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Len(t, body["reminders"], 2)

	// the -60 reminder is already 30 minutes late, the -15 is not yet due
	s.clock.Set(testNow)
	w, _ = s.do(t, "POST", "/api/v1/scanner/run-once", "org-1", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, body = s.do(t, "POST", "/api/v1/scanner/run-once", "admin-org", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := nested(body, "result")
	assert.Equal(t, 1.0, result["reminders_missed"])

	w, body = s.do(t, "GET", "/api/v1/reminders/missed", "org-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, body["count"])
	reminders := body["reminders"].([]interface{})
	reminderID := reminders[0].(map[string]interface{})["id"].(string)

	w, body = s.do(t, "POST", "/api/v1/reminders/"+reminderID+"/delivered", "org-1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "delivered", nested(body, "reminder")["status"])

	w, _ = s.do(t, "POST", "/api/v1/reminders/"+reminderID+"/delivered", "org-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body = s.do(t, "GET", "/api/v1/scanner/status", "org-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["running"])
	assert.NotNil(t, body["last_result"])
}

func TestScheduleReminderValidation(t *testing.T) {
	s := newTestServer(t)

	w, body := s.do(t, "POST", "/api/v1/reminders", "org-1", gin.H{
		"target_type": "meeting",
		"target_id":   "x",
		"target_at":   testNow,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])

	w, body = s.do(t, "POST", "/api/v1/reminders", "org-1", gin.H{
		"target_type":    "task",
		"target_id":      "task-7",
		"target_at":      testNow.Add(time.Hour),
		"offset_minutes": -30,
		"channel":        "email",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "pending", nested(body, "reminder")["status"])
}

func TestExportLeads(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, "POST", "/api/v1/leads", "org-1", gin.H{
		"address":    "9 Oak Ave, Austin, TX 78702",
		"financials": gin.H{"arv": 250000, "estimated_repairs": 30000},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w, _ = s.do(t, "POST", "/api/v1/leads", "org-2", gin.H{"address": "1 Other Rd, Dallas, TX 75201"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	get := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", path, nil)
		req.Header.Set("Authorization", "Bearer "+token(t, "org-1", "member"))
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		return rec
	}

	rec := get("/api/v1/leads/export")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Equal(t, "1", rec.Header().Get("X-Export-Count"))
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "id,address,line1"))
	assert.Contains(t, lines[1], "145000")
	assert.NotContains(t, rec.Body.String(), "Dallas")

	rec = get("/api/v1/leads/export?format=json")
	require.Equal(t, http.StatusOK, rec.Code)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.EqualValues(t, 1, out["count"])

	rec = get("/api/v1/leads/export?format=xml")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
