package www

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"fdsbridge/bridge"
	"fdsbridge/config"
	"fdsbridge/protocol"
	"fdsbridge/scenario"
)

type fakeConn struct {
	mu   sync.Mutex
	sent []*protocol.Message
}

func (f *fakeConn) Send(m *protocol.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, m)
	return nil
}

func (f *fakeConn) IsConnected() bool { return true }

func newTestServer(t *testing.T) (*httptest.Server, *bridge.Bridge, *fakeConn) {
	t.Helper()
	br := bridge.New(bridge.Config{})
	conn := &fakeConn{}
	br.Bind(conn)
	t.Cleanup(br.Close)

	cfg := config.Defaults().Web
	router, stop := NewRouter(br, &cfg, nil)
	t.Cleanup(stop)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, br, conn
}

func getJSON(t *testing.T, url string, target any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp
}

func TestStatusEndpoint(t *testing.T) {
	server, br, _ := newTestServer(t)

	s := scenario.New("s1", "warehouse")
	s.Meshes = []scenario.Element{{ID: "m1", IDAC: 1}}
	br.Scenarios().Replace(s)

	var status map[string]interface{}
	resp := getJSON(t, server.URL+"/api/status", &status)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code = %d", resp.StatusCode)
	}
	if status["scenarioId"] != "s1" {
		t.Errorf("scenarioId = %v", status["scenarioId"])
	}
	if status["cadConnected"] != true {
		t.Errorf("cadConnected = %v", status["cadConnected"])
	}
}

func TestScenarioNotLoaded(t *testing.T) {
	server, _, _ := newTestServer(t)

	resp := getJSON(t, server.URL+"/api/scenario", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status code = %d, want 404", resp.StatusCode)
	}
}

func TestScenarioElementsEmptyCollection(t *testing.T) {
	server, br, _ := newTestServer(t)
	br.Scenarios().Replace(scenario.New("s1", "test"))

	// A fresh scenario has no meshes yet. The kind is still valid, so the
	// endpoint answers with an empty list rather than an error.
	var elems []scenario.Element
	resp := getJSON(t, server.URL+"/api/scenario/elements/mesh", &elems)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code = %d, want 200 for a valid empty kind", resp.StatusCode)
	}
	if len(elems) != 0 {
		t.Errorf("elems = %+v, want empty", elems)
	}

	resp = getJSON(t, server.URL+"/api/scenario/elements/bogus", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown kind status code = %d, want 400", resp.StatusCode)
	}
}

func TestLocateEndpoint(t *testing.T) {
	server, br, _ := newTestServer(t)

	s := scenario.New("s1", "test")
	s.Vents = []scenario.Element{{ID: "v1", IDAC: 33}}
	br.Scenarios().Replace(s)

	var loc scenario.Location
	resp := getJSON(t, server.URL+"/api/scenario/locate?idAC=33", &loc)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code = %d", resp.StatusCode)
	}
	if loc.Kind != scenario.KindVent || loc.Index != 0 {
		t.Errorf("loc = %+v", loc)
	}

	resp = getJSON(t, server.URL+"/api/scenario/locate?idAC=404", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("miss status code = %d, want 404", resp.StatusCode)
	}
}

func TestSelectEndpointSendsToCAD(t *testing.T) {
	server, br, conn := newTestServer(t)
	br.Scenarios().Replace(scenario.New("s1", "test"))

	resp, err := http.Post(server.URL+"/api/select", "application/json",
		strings.NewReader(`{"idAC": 42}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code = %d", resp.StatusCode)
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()
	if len(conn.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(conn.sent))
	}
	if conn.sent[0].Method != protocol.MethodSelectWeb {
		t.Errorf("method = %q, want selectObjectWeb", conn.sent[0].Method)
	}
}

func TestAuthGate(t *testing.T) {
	br := bridge.New(bridge.Config{})
	br.Bind(&fakeConn{})
	defer br.Close()

	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	cfg := config.Defaults().Web
	cfg.AdminPasswordHash = hash

	router, stop := NewRouter(br, &cfg, nil)
	defer stop()
	server := httptest.NewServer(router)
	defer server.Close()

	resp := getJSON(t, server.URL+"/api/status", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("unauthenticated status code = %d, want 401", resp.StatusCode)
	}

	// Bad credentials are rejected.
	badLogin, err := http.Post(server.URL+"/api/login", "application/json",
		strings.NewReader(`{"username":"admin","password":"wrong"}`))
	if err != nil {
		t.Fatalf("POST login: %v", err)
	}
	badLogin.Body.Close()
	if badLogin.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad login status code = %d, want 401", badLogin.StatusCode)
	}
}
