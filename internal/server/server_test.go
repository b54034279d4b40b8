package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jmhodges/clock"
	"go.uber.org/zap"

	"github.com/floramind/floramind/internal/chat"
	"github.com/floramind/floramind/internal/gateway"
	"github.com/floramind/floramind/internal/llm"
	"github.com/floramind/floramind/internal/store"
	"github.com/floramind/floramind/internal/weather"
)

type stubWeather struct {
	mu     sync.Mutex
	cities []string
	err    error
}

func (f *stubWeather) Current(ctx context.Context, city string) (*weather.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cities = append(f.cities, city)
	if f.err != nil {
		return nil, f.err
	}
	return &weather.Snapshot{City: city, Condition: "light rain", Temp: 17}, nil
}

type fixture struct {
	srv     *Server
	db      *store.DB
	mock    *llm.MockClient
	fetcher *stubWeather
	clk     clock.FakeClock
}

func testServer(t *testing.T) *fixture {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	mock := &llm.MockClient{Response: &llm.Response{Content: "I am thirsty! 💧", Provider: "mock"}}
	fetcher := &stubWeather{}
	clk := clock.NewFake()
	log := zap.NewNop().Sugar()

	gw := gateway.New(fetcher, mock, clk, 3*time.Hour, log)
	chatMgr := chat.NewManager(mock)

	return &fixture{
		srv:     New(db, gw, chatMgr, clk, log, "Hangzhou", "test"),
		db:      db,
		mock:    mock,
		fetcher: fetcher,
		clk:     clk,
	}
}

// do performs a request and decodes the envelope.
func (f *fixture) do(t *testing.T, method, path, token, body string) (int, map[string]any) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.srv.ServeHTTP(w, req)

	var resp map[string]any
	json.Unmarshal(w.Body.Bytes(), &resp)
	return w.Code, resp
}

// register creates an account and returns its bearer token.
func (f *fixture) register(t *testing.T, username string) string {
	t.Helper()
	body := fmt.Sprintf(`{"username":%q,"email":"%s@example.com","password":"secret123"}`, username, username)
	code, resp := f.do(t, "POST", "/api/v1/users/register", "", body)
	if code != http.StatusOK {
		t.Fatalf("register status = %d: %v", code, resp)
	}
	data := resp["data"].(map[string]any)
	return data["token"].(string)
}

func TestHealthOpen(t *testing.T) {
	f := testServer(t)
	code, resp := f.do(t, "GET", "/api/v1/health", "", "")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if resp["msg"] != "ok" {
		t.Errorf("msg = %v", resp["msg"])
	}
}

func TestAuthRequired(t *testing.T) {
	f := testServer(t)
	code, _ := f.do(t, "GET", "/api/v1/plants", "", "")
	if code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", code)
	}
	code, _ = f.do(t, "GET", "/api/v1/plants", "bogus-token", "")
	if code != http.StatusUnauthorized {
		t.Errorf("bogus token status = %d, want 401", code)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	f := testServer(t)
	f.register(t, "lin")

	code, resp := f.do(t, "POST", "/api/v1/users/login", "", `{"username":"lin","password":"secret123"}`)
	if code != http.StatusOK {
		t.Fatalf("login status = %d", code)
	}
	if resp["code"].(float64) != 200 {
		t.Errorf("login code = %v: %v", resp["code"], resp["msg"])
	}

	_, resp = f.do(t, "POST", "/api/v1/users/login", "", `{"username":"lin","password":"nope"}`)
	if resp["code"].(float64) != 401 {
		t.Errorf("wrong password code = %v, want 401", resp["code"])
	}
}

func TestPlantLifecycleOverHTTP(t *testing.T) {
	f := testServer(t)
	token := f.register(t, "lin")

	code, resp := f.do(t, "POST", "/api/v1/plants", token,
		`{"nickname":"Pothos","species":"Epipremnum aureum","water_cycle":7}`)
	if code != http.StatusOK || resp["code"].(float64) != 200 {
		t.Fatalf("create plant: %d %v", code, resp)
	}

	_, resp = f.do(t, "GET", "/api/v1/plants", token, "")
	plants := resp["data"].([]any)
	if len(plants) != 1 {
		t.Fatalf("listed %d plants, want 1", len(plants))
	}
	first := plants[0].(map[string]any)
	if first["nickname"] != "Pothos" {
		t.Errorf("nickname = %v", first["nickname"])
	}
}

func TestRecordWatering(t *testing.T) {
	f := testServer(t)
	token := f.register(t, "lin")

	_, resp := f.do(t, "POST", "/api/v1/plants", token,
		`{"nickname":"Basil","species":"Ocimum","water_cycle":3}`)
	plantID := int64(resp["data"].(map[string]any)["plant_id"].(float64))

	path := fmt.Sprintf("/api/v1/plants/%d/water", plantID)
	_, resp = f.do(t, "POST", path, token, "")
	if resp["code"].(float64) != 200 {
		t.Fatalf("record water: %v", resp)
	}
	data := resp["data"].(map[string]any)
	if data["operated_at"] != f.clk.Now().Format("2006-01-02") {
		t.Errorf("operated_at = %v", data["operated_at"])
	}

	// Unknown plant is a 404-level envelope, not a transport error.
	_, resp = f.do(t, "POST", "/api/v1/plants/9999/water", token, "")
	if resp["code"].(float64) != 404 {
		t.Errorf("unknown plant code = %v, want 404", resp["code"])
	}
}

func TestRemindersEndToEnd(t *testing.T) {
	f := testServer(t)
	token := f.register(t, "lin")

	lastWatered := f.clk.Now().AddDate(0, 0, -10).Format("2006-01-02")
	body := fmt.Sprintf(`{"nickname":"Pothos","species":"Epipremnum","water_cycle":7,"last_watered":%q}`, lastWatered)
	f.do(t, "POST", "/api/v1/plants", token, body)

	code, resp := f.do(t, "GET", "/api/v1/reminders", token, "")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	data := resp["data"].(map[string]any)
	if data["total"].(float64) != 1 {
		t.Fatalf("total = %v, want 1", data["total"])
	}

	rec := data["reminders"].([]any)[0].(map[string]any)
	if rec["days_overdue"].(float64) != 3 {
		t.Errorf("days_overdue = %v, want 3", rec["days_overdue"])
	}
	if rec["urgency"] != "medium" {
		t.Errorf("urgency = %v, want medium", rec["urgency"])
	}
	if rec["ai_message"] != "I am thirsty! 💧" {
		t.Errorf("ai_message = %v", rec["ai_message"])
	}
	if !strings.Contains(rec["message"].(string), "3 days overdue") {
		t.Errorf("message = %v", rec["message"])
	}

	// User has no city configured: the default city was used for weather.
	f.fetcher.mu.Lock()
	city := f.fetcher.cities[0]
	f.fetcher.mu.Unlock()
	if city != "Hangzhou" {
		t.Errorf("weather city = %q, want default Hangzhou", city)
	}
}

func TestRemindersSurviveProviderOutage(t *testing.T) {
	f := testServer(t)
	f.fetcher.err = fmt.Errorf("weather provider down")
	f.mock.Response = nil
	f.mock.Err = fmt.Errorf("llm provider down")
	token := f.register(t, "lin")

	lastWatered := f.clk.Now().AddDate(0, 0, -10).Format("2006-01-02")
	body := fmt.Sprintf(`{"nickname":"Pothos","species":"Epipremnum","water_cycle":7,"last_watered":%q}`, lastWatered)
	f.do(t, "POST", "/api/v1/plants", token, body)

	code, resp := f.do(t, "GET", "/api/v1/reminders", token, "")
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200 even under outage", code)
	}
	data := resp["data"].(map[string]any)
	if data["total"].(float64) != 1 {
		t.Fatalf("total = %v, want 1", data["total"])
	}
	rec := data["reminders"].([]any)[0].(map[string]any)
	if _, ok := rec["ai_message"]; ok {
		t.Errorf("ai_message present under llm outage: %v", rec["ai_message"])
	}
	if rec["message"] == "" {
		t.Error("standard message missing")
	}
}

func TestRemindersEmptyList(t *testing.T) {
	f := testServer(t)
	token := f.register(t, "lin")

	_, resp := f.do(t, "GET", "/api/v1/reminders", token, "")
	data := resp["data"].(map[string]any)
	if data["total"].(float64) != 0 {
		t.Errorf("total = %v, want 0", data["total"])
	}
	if data["reminders"] == nil {
		t.Error("reminders should be an empty list, not null")
	}
}

func TestWeatherEndpointUsesUserCity(t *testing.T) {
	f := testServer(t)
	token := f.register(t, "lin")
	f.do(t, "PUT", "/api/v1/user/profile", token, `{"city":"Shanghai"}`)

	_, resp := f.do(t, "GET", "/api/v1/weather", token, "")
	data := resp["data"].(map[string]any)
	if data["city"] != "Shanghai" {
		t.Errorf("city = %v, want Shanghai", data["city"])
	}
	if data["condition"] != "light rain" {
		t.Errorf("condition = %v", data["condition"])
	}
}

func TestChatEndpoint(t *testing.T) {
	f := testServer(t)
	f.mock.Response = &llm.Response{Content: "Water it twice a week.", Provider: "mock"}
	token := f.register(t, "lin")

	_, resp := f.do(t, "POST", "/api/v1/ai/chat", token, `{"message":"How often should I water a pothos?"}`)
	data := resp["data"].(map[string]any)
	if data["message"] != "Water it twice a week." {
		t.Errorf("reply = %v", data["message"])
	}
	convID := data["conversation_id"].(string)
	if convID == "" {
		t.Fatal("missing conversation id")
	}

	// Second turn continues the same conversation.
	body := fmt.Sprintf(`{"message":"And in winter?","conversation_id":%q}`, convID)
	_, resp = f.do(t, "POST", "/api/v1/ai/chat", token, body)
	data = resp["data"].(map[string]any)
	if data["conversation_id"] != convID {
		t.Errorf("conversation id changed: %v", data["conversation_id"])
	}
}

func TestDiaryOverHTTP(t *testing.T) {
	f := testServer(t)
	token := f.register(t, "lin")

	_, resp := f.do(t, "POST", "/api/v1/diaries", token,
		`{"content":"new leaf on the monstera","activity_type":"observation"}`)
	if resp["code"].(float64) != 200 {
		t.Fatalf("create diary: %v", resp)
	}

	_, resp = f.do(t, "GET", "/api/v1/diaries", token, "")
	entries := resp["data"].([]any)
	if len(entries) != 1 {
		t.Fatalf("listed %d entries, want 1", len(entries))
	}
}

func TestProfileAndPassword(t *testing.T) {
	f := testServer(t)
	token := f.register(t, "lin")

	f.do(t, "PUT", "/api/v1/user/profile", token, `{"signature":"leaf by leaf","city":"杭州"}`)
	_, resp := f.do(t, "GET", "/api/v1/user/profile", token, "")
	data := resp["data"].(map[string]any)
	if data["signature"] != "leaf by leaf" || data["city"] != "杭州" {
		t.Errorf("profile = %v", data)
	}

	_, resp = f.do(t, "PUT", "/api/v1/user/password", token, `{"old_password":"secret123","new_password":"evenmoresecret"}`)
	if resp["code"].(float64) != 200 {
		t.Fatalf("change password: %v", resp)
	}
	_, resp = f.do(t, "POST", "/api/v1/users/login", "", `{"username":"lin","password":"evenmoresecret"}`)
	if resp["code"].(float64) != 200 {
		t.Errorf("login with new password: %v", resp)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	f := testServer(t)
	token := f.register(t, "lin")

	f.do(t, "POST", "/api/v1/users/logout", token, "")
	code, _ := f.do(t, "GET", "/api/v1/plants", token, "")
	if code != http.StatusUnauthorized {
		t.Errorf("status after logout = %d, want 401", code)
	}
}
