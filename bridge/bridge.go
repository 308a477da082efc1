package bridge

import (
	"errors"
	"log"

	"fdsbridge/cad"
	"fdsbridge/protocol"
	"fdsbridge/scenario"
	"fdsbridge/store"
)

// ErrNoScenario reports a CAD request arriving while no scenario is loaded.
var ErrNoScenario = errors.New("bridge: no scenario loaded")

// Conn is the outbound side of the CAD link. *cad.Client satisfies it.
type Conn interface {
	Send(m *protocol.Message) error
	IsConnected() bool
}

// Config wires the bridge's collaborators. Zero-value fields get defaults;
// DB may be nil to disable persistence.
type Config struct {
	Scenarios   *scenario.Manager
	Transformer scenario.Transformer
	Navigator   Navigator
	Bus         *EventBus
	Registry    *protocol.Registry
	DB          *store.DB
}

// Bridge ties the protocol router to the scenario store, locator, navigator,
// persistence and event bus. It implements protocol.RequestHandler: the
// router hands it decoded CAD traffic, it mutates the scenario and produces
// outbound messages through the bound connection.
type Bridge struct {
	scenarios *scenario.Manager
	sync      *scenario.Synchronizer
	nav       Navigator
	bus       *EventBus
	registry  *protocol.Registry
	router    *protocol.Router
	db        *store.DB

	conn Conn
}

// New creates a bridge. Bind a connection before traffic flows.
func New(cfg Config) *Bridge {
	if cfg.Scenarios == nil {
		cfg.Scenarios = scenario.NewManager()
	}
	if cfg.Transformer == nil {
		cfg.Transformer = scenario.RawTransformer{}
	}
	if cfg.Bus == nil {
		cfg.Bus = NewEventBus()
	}
	if cfg.Navigator == nil {
		cfg.Navigator = NewEventNavigator(cfg.Bus)
	}
	if cfg.Registry == nil {
		cfg.Registry = protocol.NewRegistry(0)
	}

	b := &Bridge{
		scenarios: cfg.Scenarios,
		sync:      scenario.NewSynchronizer(cfg.Transformer),
		nav:       cfg.Navigator,
		bus:       cfg.Bus,
		registry:  cfg.Registry,
		db:        cfg.DB,
	}
	b.router = protocol.NewRouter(b.registry, b, b.send)
	return b
}

// Bind attaches the CAD connection used for outbound messages.
func (b *Bridge) Bind(conn Conn) {
	b.conn = conn
}

// HandleFrame is the inbound entry point; wire it as the connection's frame
// handler.
func (b *Bridge) HandleFrame(data []byte) {
	b.router.Route(data)
}

// Bus returns the bridge's event bus.
func (b *Bridge) Bus() *EventBus { return b.bus }

// Scenarios returns the scenario manager.
func (b *Bridge) Scenarios() *scenario.Manager { return b.scenarios }

// Registry returns the pending-request registry.
func (b *Bridge) Registry() *protocol.Registry { return b.registry }

// PendingRequests returns how many outbound messages await an answer.
func (b *Bridge) PendingRequests() int { return b.registry.Len() }

// IsConnected reports whether the CAD link is up.
func (b *Bridge) IsConnected() bool {
	return b.conn != nil && b.conn.IsConnected()
}

// send registers every outbound message before handing it to the
// connection. The send itself is fire-and-forget.
func (b *Bridge) send(m *protocol.Message) error {
	b.registry.Register(m)
	if b.conn == nil {
		return nil
	}
	return b.conn.Send(m)
}

// SelectCAD informs the CAD side which element is focused locally.
func (b *Bridge) SelectCAD(idAC int64) error {
	m, err := protocol.NewRequest(protocol.MethodSelectWeb, &protocol.SelectPayload{IDAC: idAC})
	if err != nil {
		return err
	}
	return b.send(m)
}

// RequestGeometry asks the CAD side to push the drawing's geometry. The
// answer carries the export payload and is applied in HandleAnswer.
func (b *Bridge) RequestGeometry() error {
	m, err := protocol.NewRequest(protocol.MethodGetGeometry, nil)
	if err != nil {
		return err
	}
	return b.send(m)
}

// ConnectionChanged is the cad.Notifier hook. On any exit from connected
// the pending registry is cleared: a closed connection cancels every
// outstanding request.
func (b *Bridge) ConnectionChanged(state cad.State, err error) {
	switch state {
	case cad.StateConnected:
		log.Printf("bridge: CAD connection opened")
		b.bus.Emit(Event{Type: EventConnectionUp, Payload: ConnectionEvent{Connected: true}})
	case cad.StateDisconnected:
		abandoned := b.registry.Clear()
		if abandoned > 0 {
			log.Printf("bridge: CAD connection closed, %d pending requests abandoned", abandoned)
		} else {
			log.Printf("bridge: CAD connection closed")
		}
		evt := ConnectionEvent{Abandoned: abandoned}
		if err != nil {
			evt.Error = err.Error()
		}
		b.bus.Emit(Event{Type: EventConnectionDown, Payload: evt})
	}
}

// HandleExport applies a CAD geometry push to the current scenario.
func (b *Bridge) HandleExport(m *protocol.Message, p *protocol.ExportPayload) error {
	s := b.scenarios.Current()
	if s == nil {
		return ErrNoScenario
	}
	s.SetMeta(p.ACFile, p.ACPath)
	err := b.sync.ApplyExport(s, p)
	b.afterSync(s, err)
	return err
}

// HandleSelect resolves a CAD selection into an editor navigation target.
// A miss is benign: the element may belong to a scenario that is not
// loaded, so the request is still acknowledged with success.
func (b *Bridge) HandleSelect(m *protocol.Message, p *protocol.SelectPayload) error {
	s := b.scenarios.Current()
	if s == nil {
		return ErrNoScenario
	}
	loc, err := s.Locate(p.IDAC)
	if errors.Is(err, scenario.ErrNotFound) {
		log.Printf("bridge: no element with idAC %d in any collection", p.IDAC)
		return nil
	}
	if err != nil {
		return err
	}
	target, ok := RouteTarget(loc.Kind)
	if !ok {
		return nil
	}
	b.nav.Navigate(target, loc)
	return nil
}

// HandleAnswer broadcasts the answer's status and performs the follow-up
// effects some methods carry.
func (b *Bridge) HandleAnswer(answer, origin *protocol.Message) {
	b.bus.Emit(Event{
		Type: EventAnswerStatus,
		Payload: AnswerStatusEvent{
			RequestID: answer.RequestID,
			Method:    answer.Method,
			Status:    answer.Status,
		},
	})

	switch answer.Method {
	case protocol.MethodGetGeometry:
		// The geometry answer doubles as an export: it carries the
		// drawing metadata and the full payload.
		var p protocol.ExportPayload
		if err := answer.DecodePayload(&p); err != nil {
			log.Printf("bridge: %v", &protocol.MalformedPayloadError{Method: answer.Method, Err: err})
			return
		}
		s := b.scenarios.Current()
		if s == nil {
			log.Printf("bridge: geometry answer with no scenario loaded")
			return
		}
		s.SetMeta(p.ACFile, p.ACPath)
		if err := b.sync.ApplyExport(s, &p); err != nil {
			log.Printf("bridge: apply geometry answer: %v", err)
			b.afterSync(s, err)
			return
		}
		b.afterSync(s, nil)
	}
}

// afterSync persists the scenario, journals the export and broadcasts the
// result. Runs after partial failures too: the kinds that succeeded are
// already swapped in.
func (b *Bridge) afterSync(s *scenario.Scenario, syncErr error) {
	failed := failedKinds(syncErr)
	counts := s.Counts()
	acFile, acPath := s.Meta()

	if b.db != nil {
		if err := b.db.SaveScenario(s); err != nil {
			log.Printf("bridge: persist scenario %s: %v", s.ID, err)
		}
		if err := b.db.AppendSyncJournal(s.ID, acFile, acPath, counts, failed); err != nil {
			log.Printf("bridge: journal export for %s: %v", s.ID, err)
		}
	}

	b.bus.Emit(Event{
		Type: EventGeometrySynced,
		Payload: GeometrySyncedEvent{
			ScenarioID: s.ID,
			ACFile:     acFile,
			ACPath:     acPath,
			Counts:     counts,
			Failed:     failed,
		},
	})
}

// failedKinds extracts the kinds behind a joined sync error.
func failedKinds(err error) []scenario.Kind {
	if err == nil {
		return nil
	}
	var kinds []scenario.Kind
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		for _, e := range joined.Unwrap() {
			var terr *scenario.TransformError
			if errors.As(e, &terr) {
				kinds = append(kinds, terr.Kind)
			}
		}
		return kinds
	}
	var terr *scenario.TransformError
	if errors.As(err, &terr) {
		kinds = append(kinds, terr.Kind)
	}
	return kinds
}

// Close stops the registry sweeper.
func (b *Bridge) Close() {
	b.registry.Stop()
}

var _ protocol.RequestHandler = (*Bridge)(nil)
