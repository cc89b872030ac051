package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/westernstar/backend/internal/auth"
	"github.com/MarcoPoloResearchLab/westernstar/backend/internal/content"
	"github.com/MarcoPoloResearchLab/westernstar/backend/internal/events"
	"github.com/MarcoPoloResearchLab/westernstar/backend/internal/views"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	testAdminEmail    = "admin@westernstar.example"
	testAdminPassword = "correct horse"
	testCookieName    = "westernstar_session"
)

type testEnvironment struct {
	handler  http.Handler
	store    *content.Store
	bus      *events.Bus[content.Snapshot]
	realtime *RealtimeDispatcher
	issuer   *auth.TokenIssuer
	homepage *views.Watcher[views.Homepage]
}

func newTestEnvironment(t *testing.T, seed *content.Snapshot) *testEnvironment {
	t.Helper()
	gin.SetMode(gin.TestMode)

	bus := events.NewBus[content.Snapshot](zap.NewNop())
	store := content.NewStore(content.StoreConfig{Publisher: bus, Seed: seed})
	realtime := NewRealtimeDispatcher()
	subscription := realtime.Attach(bus)
	t.Cleanup(subscription.Unsubscribe)

	issuer, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte("test-signing-secret"),
		Issuer:        "westernstar-backend",
		Audience:      "westernstar-admin",
		TokenTTL:      30 * time.Minute,
	})
	if err != nil {
		t.Fatalf("failed to build token issuer: %v", err)
	}
	credentials, err := auth.NewCredentialChecker(testAdminEmail, testAdminPassword)
	if err != nil {
		t.Fatalf("failed to build credential checker: %v", err)
	}
	homepage := views.NewHomepage(bus, store)
	t.Cleanup(homepage.Close)

	handler, err := NewHTTPHandler(Dependencies{
		Store:        store,
		TokenManager: issuer,
		Credentials:  credentials,
		Realtime:     realtime,
		Homepage:     homepage,
		ResetSeed:    seed,
		Logger:       zap.NewNop(),
		CookieName:   testCookieName,
		Heartbeat:    time.Hour,
	})
	if err != nil {
		t.Fatalf("failed to build handler: %v", err)
	}
	return &testEnvironment{
		handler:  handler,
		store:    store,
		bus:      bus,
		realtime: realtime,
		issuer:   issuer,
		homepage: homepage,
	}
}

func (e *testEnvironment) adminToken(t *testing.T) string {
	t.Helper()
	token, _, err := e.issuer.IssueAdminToken(context.Background(), testAdminEmail)
	if err != nil {
		t.Fatalf("failed to issue admin token: %v", err)
	}
	return token
}

func (e *testEnvironment) do(t *testing.T, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	request := httptest.NewRequest(method, target, reader)
	request.Header.Set("Content-Type", "application/json")
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	e.handler.ServeHTTP(recorder, request)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to decode response %q: %v", recorder.Body.String(), err)
	}
}

func testSeed() *content.Snapshot {
	return &content.Snapshot{
		Newsletters: []content.Newsletter{
			{Entry: content.Entry{ID: "1", Title: "Q3 Outlook", Date: "2025-09-01", Tags: []string{"Markets"}}},
			{Entry: content.Entry{ID: "2", Title: "Policy Brief", Date: "2025-08-01", Tags: []string{"Policy", "Markets"}}},
			{Entry: content.Entry{ID: "3", Title: "Tech Notes", Date: "2025-07-01", Tags: []string{"Technology"}}},
		},
		Articles: []content.Article{
			{Entry: content.Entry{ID: "1", Title: "Digital Economy", Date: "2025-09-24", Category: "Technology", Tags: []string{"Technology"}}, IsVisible: true, Position: 1, ShowcaseSection: content.ShowcaseFeatured},
			{Entry: content.Entry{ID: "2", Title: "Green Energy", Date: "2025-09-22", Category: "Policy", Tags: []string{"Policy"}}, IsVisible: true, Position: 2, ShowcaseSection: content.ShowcaseMosaic},
		},
		Tags: []content.Tag{
			{Name: "Policy", Color: "red"},
			{Name: "Markets", Color: "blue"},
		},
		Testimonials: []content.Testimonial{
			{ID: 1, Quote: "Invaluable", Author: "A. Client", IsActive: true},
		},
	}
}
