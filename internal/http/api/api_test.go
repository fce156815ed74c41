package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/marketbridge/brokergate/internal/account"
	"github.com/marketbridge/brokergate/internal/alpaca"
	"github.com/marketbridge/brokergate/internal/config"
	"github.com/marketbridge/brokergate/internal/db"
	"github.com/marketbridge/brokergate/internal/models"
	"github.com/marketbridge/brokergate/internal/ratelimit"
	"github.com/marketbridge/brokergate/internal/store"
)

func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	return newTestRouterWithLimiter(t, ratelimit.NewManager(ratelimit.Options{Limit: 100, Window: time.Minute}, nil))
}

func newTestRouterWithLimiter(t *testing.T, limiter *ratelimit.Manager) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	gateway := alpaca.NewStub()
	users := store.NewUserStore(conn)
	gaps := store.NewGapJournal(conn)
	coordinator := account.NewCoordinator(users, gaps, gateway)

	engine := gin.New()
	RegisterRoutes(engine, Deps{
		DB:          conn,
		Users:       users,
		Gaps:        gaps,
		Coordinator: coordinator,
		Gateway:     gateway,
		JWT:         config.JWTConfig{Secret: "test-secret", Expiry: time.Hour},
		Limiter:     limiter,
	})
	return engine, conn
}

func doJSON(t *testing.T, engine *gin.Engine, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	engine.ServeHTTP(recorder, req)
	return recorder
}

func createBody(taxID, email, phone string) string {
	return fmt.Sprintf(`{
		"identity": {
			"given_name": "Jane",
			"family_name": "Doe",
			"country_of_tax_residence": "USA",
			"tax_id_type": "USA_SSN",
			"tax_id": %q,
			"funding_source": ["employment_income"]
		},
		"contact": {
			"email_address": %q,
			"phone_number": %q,
			"city": "San Mateo",
			"state": "CA",
			"postal_code": "94401"
		},
		"agreements": [
			{"agreement": "customer_agreement", "signed_at": "2024-05-07T08:06:00Z", "ip_address": "185.13.21.99"}
		],
		"password": "correct horse battery"
	}`, taxID, email, phone)
}

// signUpAndLogin registers an account against the stub gateway and returns
// its account number and a session token.
func signUpAndLogin(t *testing.T, engine *gin.Engine, taxID, email, phone string) (string, string) {
	t.Helper()
	resp := doJSON(t, engine, http.MethodPost, "/v1/users", createBody(taxID, email, phone), "")
	if resp.Code != http.StatusCreated {
		t.Fatalf("signup status %d: %s", resp.Code, resp.Body.String())
	}
	var created struct {
		AccountNumber string `json:"account_number"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode signup response: %v", err)
	}

	resp = doJSON(t, engine, http.MethodPost, "/v1/session",
		fmt.Sprintf(`{"email": %q, "password": "correct horse battery"}`, email), "")
	if resp.Code != http.StatusOK {
		t.Fatalf("login status %d: %s", resp.Code, resp.Body.String())
	}
	var session struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return created.AccountNumber, session.Token
}

func TestSignupLoginAndGetAccount(t *testing.T) {
	engine, _ := newTestRouter(t)
	accountNumber, token := signUpAndLogin(t, engine, "534-21-8765", "jane@example.com", "+15556667788")

	resp := doJSON(t, engine, http.MethodGet, "/v1/users/"+accountNumber, "", token)
	if resp.Code != http.StatusOK {
		t.Fatalf("get status %d: %s", resp.Code, resp.Body.String())
	}
	var doc map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode account: %v", err)
	}
	if doc["account_number"] != accountNumber || doc["status"] != "ACTIVE" {
		t.Fatalf("unexpected document: %v", doc)
	}
	// Residual gateway fields survive the mirror round trip.
	if doc["currency"] != "USD" {
		t.Fatal("mirror field missing from document")
	}
}

func TestSignupValidationFailure(t *testing.T) {
	engine, _ := newTestRouter(t)
	resp := doJSON(t, engine, http.MethodPost, "/v1/users",
		createBody("123-45-6789", "jane@example.com", "+15556667788"), "")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), "identity.tax_id") {
		t.Fatalf("violation field missing: %s", resp.Body.String())
	}
}

func TestRequestsWithoutSessionAreRejected(t *testing.T) {
	engine, _ := newTestRouter(t)
	resp := doJSON(t, engine, http.MethodGet, "/v1/users/808971365", "", "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestStrangerCannotReadOtherAccount(t *testing.T) {
	engine, _ := newTestRouter(t)
	first, _ := signUpAndLogin(t, engine, "534-21-8765", "jane@example.com", "+15556667788")
	_, strangerToken := signUpAndLogin(t, engine, "645-32-9876", "john@example.com", "+15559998877")

	resp := doJSON(t, engine, http.MethodGet, "/v1/users/"+first, "", strangerToken)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestCloseAndAdminReopen(t *testing.T) {
	engine, conn := newTestRouter(t)
	accountNumber, token := signUpAndLogin(t, engine, "534-21-8765", "jane@example.com", "+15556667788")

	resp := doJSON(t, engine, http.MethodPost, "/v1/users/"+accountNumber+"/close", "", token)
	if resp.Code != http.StatusOK {
		t.Fatalf("close status %d: %s", resp.Code, resp.Body.String())
	}

	// Reopen as the owner is forbidden.
	adminAccount, adminToken := signUpAndLogin(t, engine, "645-32-9876", "ops@example.com", "+15559998877")
	resp = doJSON(t, engine, http.MethodPost, "/v1/users/"+accountNumber+"/reopen", "", adminToken)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin reopen, got %d", resp.Code)
	}

	if err := conn.Model(&models.User{}).Where("account_number = ?", adminAccount).
		Update("is_admin", true).Error; err != nil {
		t.Fatalf("promote admin: %v", err)
	}

	// Closing an account that is already closed conflicts.
	resp = doJSON(t, engine, http.MethodPost, "/v1/users/"+accountNumber+"/close", "", adminToken)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 closing a closed account, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = doJSON(t, engine, http.MethodPost, "/v1/users/"+accountNumber+"/reopen", "", adminToken)
	if resp.Code != http.StatusOK {
		t.Fatalf("admin reopen status %d: %s", resp.Code, resp.Body.String())
	}

	resp = doJSON(t, engine, http.MethodGet, "/v1/users/"+accountNumber, "", adminToken)
	if resp.Code != http.StatusOK {
		t.Fatalf("get after reopen: %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"status":"ACTIVE"`) {
		t.Fatalf("account not active after reopen: %s", resp.Body.String())
	}
}

func TestClosedUserCannotUseSession(t *testing.T) {
	engine, _ := newTestRouter(t)
	accountNumber, token := signUpAndLogin(t, engine, "534-21-8765", "jane@example.com", "+15556667788")

	resp := doJSON(t, engine, http.MethodPost, "/v1/users/"+accountNumber+"/close", "", token)
	if resp.Code != http.StatusOK {
		t.Fatalf("close status %d", resp.Code)
	}

	resp = doJSON(t, engine, http.MethodGet, "/v1/users/"+accountNumber, "", token)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for closed account session, got %d", resp.Code)
	}
}

func TestTradingSummaryFanOut(t *testing.T) {
	engine, _ := newTestRouter(t)
	accountNumber, token := signUpAndLogin(t, engine, "534-21-8765", "jane@example.com", "+15556667788")

	resp := doJSON(t, engine, http.MethodGet, "/v1/trading/"+accountNumber+"/summary", "", token)
	if resp.Code != http.StatusOK {
		t.Fatalf("summary status %d: %s", resp.Code, resp.Body.String())
	}
	var summary struct {
		Account   *alpaca.TradingDetails `json:"account"`
		Positions []alpaca.Position      `json:"positions"`
		Orders    []alpaca.Order         `json:"orders"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.Account == nil || len(summary.Positions) == 0 || len(summary.Orders) == 0 {
		t.Fatalf("summary incomplete: %s", resp.Body.String())
	}
}

func TestFundingEndpoints(t *testing.T) {
	engine, _ := newTestRouter(t)
	accountNumber, token := signUpAndLogin(t, engine, "534-21-8765", "jane@example.com", "+15556667788")

	resp := doJSON(t, engine, http.MethodPost, "/v1/users/"+accountNumber+"/ach",
		`{"account_owner_name":"Jane Doe","bank_account_type":"CHECKING","bank_account_number":"123","bank_routing_number":"121000358"}`, token)
	if resp.Code != http.StatusCreated {
		t.Fatalf("create relationship status %d: %s", resp.Code, resp.Body.String())
	}

	resp = doJSON(t, engine, http.MethodPost, "/v1/users/"+accountNumber+"/ach/transfers",
		`{"transfer_type":"ach","relationship_id":"rel-1","amount":"100","direction":"INCOMING"}`, token)
	if resp.Code != http.StatusCreated {
		t.Fatalf("create transfer status %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), `"amount":"100"`) {
		t.Fatalf("transfer not echoed: %s", resp.Body.String())
	}
}

func TestMarketDataEndpoints(t *testing.T) {
	engine, _ := newTestRouter(t)
	_, token := signUpAndLogin(t, engine, "534-21-8765", "jane@example.com", "+15556667788")

	resp := doJSON(t, engine, http.MethodGet, "/v1/assets/AAPL", "", token)
	if resp.Code != http.StatusOK {
		t.Fatalf("asset status %d: %s", resp.Code, resp.Body.String())
	}
	var payload struct {
		Asset     *alpaca.Asset `json:"asset"`
		LatestBar *alpaca.Bar   `json:"latest_bar"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode asset payload: %v", err)
	}
	if payload.Asset == nil || payload.LatestBar == nil {
		t.Fatalf("asset fan-out incomplete: %s", resp.Body.String())
	}

	resp = doJSON(t, engine, http.MethodGet, "/v1/data/AAPL/bars?limit=30", "", token)
	if resp.Code != http.StatusOK {
		t.Fatalf("bars status %d: %s", resp.Code, resp.Body.String())
	}

	resp = doJSON(t, engine, http.MethodGet, "/v1/data/AAPL/bars?limit=zero", "", token)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", resp.Code)
	}
}

func TestAdminSurface(t *testing.T) {
	engine, conn := newTestRouter(t)
	_, userToken := signUpAndLogin(t, engine, "534-21-8765", "jane@example.com", "+15556667788")
	adminAccount, adminToken := signUpAndLogin(t, engine, "645-32-9876", "ops@example.com", "+15559998877")

	resp := doJSON(t, engine, http.MethodGet, "/v1/admin/users", "", userToken)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", resp.Code)
	}

	if err := conn.Model(&models.User{}).Where("account_number = ?", adminAccount).
		Update("is_admin", true).Error; err != nil {
		t.Fatalf("promote admin: %v", err)
	}

	resp = doJSON(t, engine, http.MethodGet, "/v1/admin/users?search=jane", "", adminToken)
	if resp.Code != http.StatusOK {
		t.Fatalf("admin list status %d: %s", resp.Code, resp.Body.String())
	}
	var listing struct {
		Total int64 `json:"total"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &listing); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if listing.Total != 1 {
		t.Fatalf("expected one match, got %d", listing.Total)
	}
	if strings.Contains(resp.Body.String(), "password") {
		t.Fatal("listing leaks credentials")
	}

	resp = doJSON(t, engine, http.MethodGet, "/v1/admin/reconciliation", "", adminToken)
	if resp.Code != http.StatusOK {
		t.Fatalf("reconciliation list status %d", resp.Code)
	}

	resp = doJSON(t, engine, http.MethodPost, "/v1/admin/reconciliation/sweep", "", adminToken)
	if resp.Code != http.StatusOK {
		t.Fatalf("sweep status %d: %s", resp.Code, resp.Body.String())
	}
}

func TestLoginThrottledAfterRepeatedAttempts(t *testing.T) {
	limiter := ratelimit.NewManager(ratelimit.Options{Limit: 3, Window: time.Minute}, nil)
	engine, _ := newTestRouterWithLimiter(t, limiter)

	body := `{"email":"nobody@example.com","password":"wrong-password"}`
	for i := 0; i < 3; i++ {
		resp := doJSON(t, engine, http.MethodPost, "/v1/session", body, "")
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d status %d: %s", i, resp.Code, resp.Body.String())
		}
	}

	resp := doJSON(t, engine, http.MethodPost, "/v1/session", body, "")
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected throttle, got %d: %s", resp.Code, resp.Body.String())
	}
}
