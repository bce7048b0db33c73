package api_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/randytsao24/departures/internal/api"
	"github.com/randytsao24/departures/internal/board"
	"github.com/randytsao24/departures/internal/config"
	"github.com/randytsao24/departures/internal/models"
)

// ---------------------------------------------------------------------------
// Mock provider
// ---------------------------------------------------------------------------

type mockBoardProvider struct {
	mu        sync.Mutex
	cards     []board.Card
	snapshots map[string]board.Snapshot
	streams   map[string]chan []models.Departure
}

func (m *mockBoardProvider) Cards() []board.Card { return m.cards }

func (m *mockBoardProvider) Snapshot(id string) (board.Snapshot, bool) {
	s, ok := m.snapshots[id]
	return s, ok
}

func (m *mockBoardProvider) Subscribe(id string) (<-chan []models.Departure, func(), bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.streams[id]
	if !ok {
		return nil, nil, false
	}
	return ch, func() {}, true
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func newTestServer(t *testing.T, provider *mockBoardProvider) *httptest.Server {
	t.Helper()
	cfg := &config.Config{HTTPTimeout: 5 * time.Second}
	router := api.NewRouter(cfg, provider)
	return httptest.NewServer(router)
}

func defaultBoard() *mockBoardProvider {
	home := board.Card{
		ID:    "0",
		Title: "Home",
		Stops: []models.StopQuery{{StopID: "HSL:1040129"}, {StopID: "HSL:1040130", PatternID: "HSL:1001:0:01"}},
	}
	return &mockBoardProvider{
		cards: []board.Card{home},
		snapshots: map[string]board.Snapshot{
			"0": {
				Card: home,
				Departures: []models.Departure{
					{MinutesUntilDeparture: 2, RouteName: "550", IsRealtime: true, RealtimeState: models.StateUpdated},
					{MinutesUntilDeparture: 6, RouteName: "I", RealtimeState: models.StateScheduled},
				},
				UpdatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
			},
		},
		streams: map[string]chan []models.Departure{
			"0": make(chan []models.Departure, 1),
		},
	}
}

func get(t *testing.T, server *httptest.Server, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(server.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var m map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
	return m
}

func assertStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Errorf("status = %d, want %d", resp.StatusCode, want)
	}
}

func assertSuccess(t *testing.T, body map[string]any) {
	t.Helper()
	if body["success"] != true {
		t.Errorf("expected success=true, body: %v", body)
	}
}

func assertField(t *testing.T, body map[string]any, field string) {
	t.Helper()
	if _, ok := body[field]; !ok {
		t.Errorf("missing field %q in response: %v", field, body)
	}
}

// ---------------------------------------------------------------------------
// Health & root
// ---------------------------------------------------------------------------

func TestHealth(t *testing.T) {
	srv := newTestServer(t, defaultBoard())
	defer srv.Close()

	resp := get(t, srv, "/health")
	assertStatus(t, resp, http.StatusOK)

	body := decodeBody(t, resp)
	assertField(t, body, "status")
	assertField(t, body, "uptime")

	if body["status"] != "OK" {
		t.Errorf("status = %v, want OK", body["status"])
	}
}

func TestAPIRoot(t *testing.T) {
	srv := newTestServer(t, defaultBoard())
	defer srv.Close()

	resp := get(t, srv, "/api")
	assertStatus(t, resp, http.StatusOK)

	body := decodeBody(t, resp)
	assertField(t, body, "endpoints")
}

func TestUnknownRoute(t *testing.T) {
	srv := newTestServer(t, defaultBoard())
	defer srv.Close()

	resp := get(t, srv, "/transit/nowhere")
	assertStatus(t, resp, http.StatusNotFound)

	body := decodeBody(t, resp)
	assertField(t, body, "error")
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, defaultBoard())
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/cards", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS /cards: %v", err)
	}
	defer resp.Body.Close()

	assertStatus(t, resp, http.StatusOK)
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}

// ---------------------------------------------------------------------------
// Card endpoints
// ---------------------------------------------------------------------------

func TestListCards(t *testing.T) {
	srv := newTestServer(t, defaultBoard())
	defer srv.Close()

	resp := get(t, srv, "/cards")
	assertStatus(t, resp, http.StatusOK)

	body := decodeBody(t, resp)
	assertSuccess(t, body)
	assertField(t, body, "cards")

	if body["count"] != float64(1) {
		t.Errorf("count = %v, want 1", body["count"])
	}
}

func TestCardDepartures(t *testing.T) {
	srv := newTestServer(t, defaultBoard())
	defer srv.Close()

	resp := get(t, srv, "/cards/0/departures")
	assertStatus(t, resp, http.StatusOK)

	body := decodeBody(t, resp)
	assertSuccess(t, body)
	assertField(t, body, "card")
	assertField(t, body, "updated_at")

	departures, ok := body["departures"].([]any)
	if !ok || len(departures) != 2 {
		t.Fatalf("expected 2 departures, body: %v", body)
	}
	first := departures[0].(map[string]any)
	if first["route"] != "550" || first["minutes_until_departure"] != float64(2) {
		t.Errorf("unexpected first departure: %v", first)
	}
	if first["realtime_state"] != "UPDATED" {
		t.Errorf("realtime_state = %v, want UPDATED", first["realtime_state"])
	}
}

func TestCardDeparturesNotFound(t *testing.T) {
	srv := newTestServer(t, defaultBoard())
	defer srv.Close()

	resp := get(t, srv, "/cards/missing/departures")
	assertStatus(t, resp, http.StatusNotFound)

	body := decodeBody(t, resp)
	assertField(t, body, "error")
}

func TestCardStream(t *testing.T) {
	provider := defaultBoard()
	srv := newTestServer(t, provider)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/cards/0/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET stream: %v", err)
	}
	defer resp.Body.Close()

	assertStatus(t, resp, http.StatusOK)
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}

	reader := bufio.NewReader(resp.Body)
	readEvent := func() []models.Departure {
		t.Helper()
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("reading stream: %v", err)
			}
			if payload, ok := strings.CutPrefix(strings.TrimSpace(line), "data: "); ok {
				var deps []models.Departure
				if err := json.Unmarshal([]byte(payload), &deps); err != nil {
					t.Fatalf("decode event: %v", err)
				}
				return deps
			}
		}
	}

	initial := readEvent()
	if len(initial) != 2 {
		t.Fatalf("initial event has %d departures, want 2", len(initial))
	}

	provider.streams["0"] <- []models.Departure{{MinutesUntilDeparture: 4, RouteName: "K"}}
	update := readEvent()
	if len(update) != 1 || update[0].RouteName != "K" {
		t.Errorf("unexpected update event: %v", update)
	}
}

func TestCardStreamNotFound(t *testing.T) {
	srv := newTestServer(t, defaultBoard())
	defer srv.Close()

	resp := get(t, srv, "/cards/missing/stream")
	assertStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()
}
