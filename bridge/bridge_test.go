package bridge

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"fdsbridge/cad"
	"fdsbridge/protocol"
	"fdsbridge/scenario"
)

// fakeConn captures outbound messages in place of the websocket client.
type fakeConn struct {
	mu        sync.Mutex
	connected bool
	sent      []*protocol.Message
}

func (f *fakeConn) Send(m *protocol.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return nil
	}
	f.sent = append(f.sent, m)
	return nil
}

func (f *fakeConn) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeConn) lastSent() *protocol.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return nil
	}
	return f.sent[len(f.sent)-1]
}

func newTestBridge(t *testing.T) (*Bridge, *fakeConn, *scenario.Manager) {
	t.Helper()
	mgr := scenario.NewManager()
	b := New(Config{Scenarios: mgr})
	conn := &fakeConn{connected: true}
	b.Bind(conn)
	t.Cleanup(b.Close)
	return b, conn, mgr
}

func collect(bus *EventBus, types ...EventType) *[]Event {
	events := &[]Event{}
	var mu sync.Mutex
	bus.SubscribeTypes(func(evt Event) {
		mu.Lock()
		*events = append(*events, evt)
		mu.Unlock()
	}, types...)
	return events
}

func TestSelectRequestEndToEnd(t *testing.T) {
	b, conn, mgr := newTestBridge(t)

	s := scenario.New("s1", "test")
	s.Obsts = []scenario.Element{
		{ID: "o1", IDAC: 5},
		{ID: "o2", IDAC: 6},
		{ID: "o3", IDAC: 7},
	}
	mgr.Replace(s)

	navEvents := collect(b.Bus(), EventNavigate)

	b.HandleFrame([]byte(`{"id":"r1","requestID":"","method":"selectObjectAc","status":"waiting","data":{"idAC":7}}`))

	reply := conn.lastSent()
	if reply == nil {
		t.Fatal("no reply sent")
	}
	if reply.RequestID != "r1" {
		t.Errorf("reply requestID = %q, want r1", reply.RequestID)
	}
	if reply.Method != protocol.MethodSelectAC {
		t.Errorf("reply method = %q", reply.Method)
	}
	if reply.Status != protocol.StatusSuccess {
		t.Errorf("reply status = %q, want success", reply.Status)
	}
	if string(reply.Data) != "{}" {
		t.Errorf("reply data = %s, want empty object", reply.Data)
	}
	if reply.ID == "" {
		t.Error("reply needs its own generated id")
	}

	if len(*navEvents) != 1 {
		t.Fatalf("got %d navigation events, want 1", len(*navEvents))
	}
	nav := (*navEvents)[0].Payload.(NavigateEvent)
	if nav.Kind != scenario.KindObst || nav.Index != 2 {
		t.Errorf("navigated to %q index %d, want obst index 2", nav.Kind, nav.Index)
	}
	if nav.Target != "fds/geometry/obstruction" {
		t.Errorf("target = %q", nav.Target)
	}
}

func TestSelectMissStillSucceeds(t *testing.T) {
	b, conn, mgr := newTestBridge(t)
	mgr.Replace(scenario.New("s1", "test"))

	navEvents := collect(b.Bus(), EventNavigate)

	b.HandleFrame([]byte(`{"id":"r1","requestID":"","method":"selectObjectAc","status":"waiting","data":{"idAC":999}}`))

	reply := conn.lastSent()
	if reply == nil || reply.Status != protocol.StatusSuccess {
		t.Fatalf("miss must still be acknowledged with success, got %+v", reply)
	}
	if len(*navEvents) != 0 {
		t.Error("no navigation should happen on a miss")
	}
}

func TestSelectWithoutScenarioIsError(t *testing.T) {
	b, conn, _ := newTestBridge(t)

	b.HandleFrame([]byte(`{"id":"r1","requestID":"","method":"selectObjectAc","status":"waiting","data":{"idAC":7}}`))

	reply := conn.lastSent()
	if reply == nil || reply.Status != protocol.StatusError {
		t.Fatalf("want error reply with no scenario loaded, got %+v", reply)
	}
}

func TestExportRequestAppliesGeometry(t *testing.T) {
	b, conn, mgr := newTestBridge(t)
	s := scenario.New("s1", "test")
	mgr.Replace(s)

	syncEvents := collect(b.Bus(), EventGeometrySynced)

	b.HandleFrame([]byte(`{
		"id":"r2","requestID":"","method":"fExport","status":"waiting",
		"data":{
			"acFile":"plan.dwg","acPath":"C:/drawings",
			"geometry":{"meshes":[{"id":"m1","idAC":1}]},
			"fires":{"fires":[{"id":"f1","idAC":2}]}
		}
	}`))

	reply := conn.lastSent()
	if reply == nil || reply.Status != protocol.StatusSuccess {
		t.Fatalf("want success reply, got %+v", reply)
	}

	if len(s.Meshes) != 1 || s.Meshes[0].IDAC != 1 {
		t.Errorf("meshes = %+v", s.Meshes)
	}
	if len(s.Fires) != 1 {
		t.Errorf("fires = %+v", s.Fires)
	}
	if s.ACFile != "plan.dwg" || s.ACPath != "C:/drawings" {
		t.Errorf("meta = %q/%q", s.ACFile, s.ACPath)
	}
	if len(*syncEvents) != 1 {
		t.Fatalf("got %d sync events, want 1", len(*syncEvents))
	}
	evt := (*syncEvents)[0].Payload.(GeometrySyncedEvent)
	if evt.Counts[scenario.KindMesh] != 1 {
		t.Errorf("counts = %+v", evt.Counts)
	}
	if len(evt.Failed) != 0 {
		t.Errorf("failed = %v, want none", evt.Failed)
	}
}

func TestUnknownMethodAcknowledged(t *testing.T) {
	b, conn, _ := newTestBridge(t)

	b.HandleFrame([]byte(`{"id":"r9","requestID":"","method":"noSuchThing","status":"waiting","data":{}}`))

	reply := conn.lastSent()
	if reply == nil || reply.Status != protocol.StatusSuccess {
		t.Fatalf("unknown method must be acknowledged with success, got %+v", reply)
	}
}

func TestGeometryAnswerTriggersSync(t *testing.T) {
	b, conn, mgr := newTestBridge(t)
	s := scenario.New("s1", "test")
	mgr.Replace(s)

	statusEvents := collect(b.Bus(), EventAnswerStatus)

	if err := b.RequestGeometry(); err != nil {
		t.Fatalf("RequestGeometry: %v", err)
	}
	request := conn.lastSent()
	if request == nil || request.Method != protocol.MethodGetGeometry {
		t.Fatalf("outbound request = %+v", request)
	}
	if b.PendingRequests() != 1 {
		t.Fatalf("pending = %d, want 1", b.PendingRequests())
	}

	b.HandleFrame([]byte(`{
		"id":"a1","requestID":"` + request.ID + `","method":"getCadGeometryWeb","status":"success",
		"data":{
			"acFile":"site.dwg","acPath":"D:/cad",
			"geometry":{"obsts":[{"id":"o1","idAC":12}]}
		}
	}`))

	if b.PendingRequests() != 0 {
		t.Errorf("pending = %d after answer, want 0", b.PendingRequests())
	}
	if len(s.Obsts) != 1 || s.Obsts[0].IDAC != 12 {
		t.Errorf("obsts = %+v, geometry answer not applied", s.Obsts)
	}
	if s.ACFile != "site.dwg" || s.ACPath != "D:/cad" {
		t.Errorf("meta = %q/%q", s.ACFile, s.ACPath)
	}
	if len(*statusEvents) != 1 {
		t.Fatalf("got %d answer-status events, want 1", len(*statusEvents))
	}
	status := (*statusEvents)[0].Payload.(AnswerStatusEvent)
	if status.Method != protocol.MethodGetGeometry || status.Status != protocol.StatusSuccess {
		t.Errorf("status event = %+v", status)
	}
	if conn.lastSent() != request {
		t.Error("answers must not be answered")
	}
}

func TestSelectCADRegistersOutbound(t *testing.T) {
	b, conn, _ := newTestBridge(t)

	if err := b.SelectCAD(42); err != nil {
		t.Fatalf("SelectCAD: %v", err)
	}
	m := conn.lastSent()
	if m == nil || m.Method != protocol.MethodSelectWeb {
		t.Fatalf("sent = %+v", m)
	}
	if m.Status != protocol.StatusWaiting {
		t.Errorf("status = %q, want waiting", m.Status)
	}
	if m.RequestID != "" {
		t.Errorf("fresh request must have empty requestID, got %q", m.RequestID)
	}
	if b.PendingRequests() != 1 {
		t.Errorf("pending = %d, want 1", b.PendingRequests())
	}

	var p protocol.SelectPayload
	if err := m.DecodePayload(&p); err != nil || p.IDAC != 42 {
		t.Errorf("payload = %+v (%v)", p, err)
	}
}

func TestDisconnectClearsPending(t *testing.T) {
	b, _, _ := newTestBridge(t)

	if err := b.SelectCAD(1); err != nil {
		t.Fatalf("SelectCAD: %v", err)
	}
	if b.PendingRequests() != 1 {
		t.Fatalf("pending = %d", b.PendingRequests())
	}

	downEvents := collect(b.Bus(), EventConnectionDown)
	b.ConnectionChanged(cad.StateDisconnected, nil)

	if b.PendingRequests() != 0 {
		t.Errorf("pending = %d after disconnect, want 0", b.PendingRequests())
	}
	if len(*downEvents) != 1 {
		t.Fatalf("got %d down events, want 1", len(*downEvents))
	}
	evt := (*downEvents)[0].Payload.(ConnectionEvent)
	if evt.Abandoned != 1 {
		t.Errorf("abandoned = %d, want 1", evt.Abandoned)
	}
}

func TestPartialExportFailureReported(t *testing.T) {
	mgr := scenario.NewManager()
	failVents := scenario.TransformerFunc(func(kind scenario.Kind, raw []json.RawMessage, current []scenario.Element) ([]scenario.Element, error) {
		if kind == scenario.KindVent {
			return nil, errors.New("bad vent record")
		}
		return scenario.RawTransformer{}.Transform(kind, raw, current)
	})

	b := New(Config{Scenarios: mgr, Transformer: failVents})
	conn := &fakeConn{connected: true}
	b.Bind(conn)
	defer b.Close()

	s := scenario.New("s1", "test")
	mgr.Replace(s)
	syncEvents := collect(b.Bus(), EventGeometrySynced)

	b.HandleFrame([]byte(`{
		"id":"r5","requestID":"","method":"fExport","status":"waiting",
		"data":{
			"geometry":{"meshes":[{"id":"m1","idAC":1}]},
			"ventilation":{"vents":[{"id":"v1","idAC":2}]}
		}
	}`))

	reply := conn.lastSent()
	if reply == nil || reply.Status != protocol.StatusError {
		t.Fatalf("partial failure must degrade the reply, got %+v", reply)
	}
	// The healthy kinds are still applied.
	if len(s.Meshes) != 1 {
		t.Errorf("meshes = %+v, want the mesh applied despite the vent failure", s.Meshes)
	}
	if len(*syncEvents) != 1 {
		t.Fatalf("got %d sync events, want 1", len(*syncEvents))
	}
	evt := (*syncEvents)[0].Payload.(GeometrySyncedEvent)
	if len(evt.Failed) != 1 || evt.Failed[0] != scenario.KindVent {
		t.Errorf("failed = %v, want [vent]", evt.Failed)
	}
}
