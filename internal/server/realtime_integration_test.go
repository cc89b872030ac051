package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/westernstar/backend/internal/content"
)

func TestLoginMutateAndStreamRoundTrip(t *testing.T) {
	env := newTestEnvironment(t, testSeed())
	server := httptest.NewServer(env.handler)
	t.Cleanup(server.Close)

	loginBody, _ := json.Marshal(loginRequestPayload{Email: "Admin@WesternStar.example", Password: testAdminPassword})
	loginResp, err := http.Post(server.URL+"/auth/login", "application/json", bytes.NewReader(loginBody))
	if err != nil {
		t.Fatalf("login request failed: %v", err)
	}
	if loginResp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected login status: %d", loginResp.StatusCode)
	}
	var login loginResponsePayload
	if err := json.NewDecoder(loginResp.Body).Decode(&login); err != nil {
		t.Fatalf("failed to decode login response: %v", err)
	}
	_ = loginResp.Body.Close()
	var sessionCookie *http.Cookie
	for _, cookie := range loginResp.Cookies() {
		if cookie.Name == testCookieName {
			sessionCookie = cookie
		}
	}
	if login.AccessToken == "" || sessionCookie == nil || sessionCookie.Value != login.AccessToken {
		t.Fatalf("expected login to return token and session cookie")
	}

	streamResp, err := http.Get(server.URL + "/content/stream?section=availableTags")
	if err != nil {
		t.Fatalf("failed to open stream: %v", err)
	}
	t.Cleanup(func() {
		_ = streamResp.Body.Close()
	})
	if streamResp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected stream status: %d", streamResp.StatusCode)
	}
	streamReader := bufio.NewReader(streamResp.Body)
	readStreamEvent(t, streamReader, realtimeEventHeartbeat)

	addRequest, err := http.NewRequest(http.MethodPost, server.URL+"/content/availableTags", strings.NewReader(`{"name":"Energy","color":"green"}`))
	if err != nil {
		t.Fatalf("failed to construct add request: %v", err)
	}
	addRequest.Header.Set("Content-Type", "application/json")
	addRequest.AddCookie(sessionCookie)
	addResp, err := http.DefaultClient.Do(addRequest)
	if err != nil {
		t.Fatalf("add request failed: %v", err)
	}
	_ = addResp.Body.Close()
	if addResp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected add status: %d", addResp.StatusCode)
	}

	data := readStreamEvent(t, streamReader, RealtimeEventContentChanged)
	var event realtimeEventPayload
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		t.Fatalf("failed to decode event payload: %v", err)
	}
	if event.Section != "availableTags" || event.Operation != "add" || event.ID != "Energy" || event.Source != realtimeSourceBackend {
		t.Fatalf("unexpected event %#v", event)
	}

	readResp, err := http.Get(server.URL + "/content/availableTags")
	if err != nil {
		t.Fatalf("read request failed: %v", err)
	}
	defer readResp.Body.Close()
	var tags []content.Tag
	if err := json.NewDecoder(readResp.Body).Decode(&tags); err != nil {
		t.Fatalf("failed to decode tags: %v", err)
	}
	if len(tags) != 3 || tags[2].Name != "Energy" {
		t.Fatalf("expected new tag to be readable, got %#v", tags)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	env := newTestEnvironment(t, testSeed())

	recorder := env.do(t, http.MethodPost, "/auth/login", "", loginRequestPayload{Email: testAdminEmail, Password: "wrong"})
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", recorder.Code)
	}
	if cookies := recorder.Result().Cookies(); len(cookies) != 0 {
		t.Fatalf("expected no session cookie, got %v", cookies)
	}
}

func TestStreamRejectsUnknownSection(t *testing.T) {
	env := newTestEnvironment(t, testSeed())

	recorder := env.do(t, http.MethodGet, "/content/stream?section=podcasts", "", nil)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", recorder.Code)
	}
}

// readStreamEvent reads server-sent events until one named eventType arrives
// and returns its data line.
func readStreamEvent(t *testing.T, reader *bufio.Reader, eventType string) string {
	t.Helper()
	type readResult struct {
		line string
		err  error
	}
	deadline := time.After(5 * time.Second)
	currentEventType := ""
	for {
		resultCh := make(chan readResult, 1)
		go func() {
			line, err := reader.ReadString('\n')
			resultCh <- readResult{line: line, err: err}
		}()
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", eventType)
		case res := <-resultCh:
			if res.err != nil {
				t.Fatalf("failed to read stream: %v", res.err)
			}
			line := strings.TrimSpace(res.line)
			if line == "" {
				continue
			}
			if strings.HasPrefix(line, "event:") {
				currentEventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
				continue
			}
			if !strings.HasPrefix(line, "data:") || currentEventType != eventType {
				continue
			}
			return strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}
}
