package protocol

import (
	"errors"
	"log"
)

// RequestHandler receives decoded traffic from the Router. Embed
// NoOpHandler and override only the methods you need.
type RequestHandler interface {
	// HandleExport processes a full geometry push from CAD.
	HandleExport(m *Message, p *ExportPayload) error

	// HandleSelect processes a CAD request to focus an element.
	HandleSelect(m *Message, p *SelectPayload) error

	// HandleAnswer is invoked for every correlated answer after the
	// pending entry has been retired. origin is the outbound message the
	// answer correlates to.
	HandleAnswer(answer, origin *Message)
}

// NoOpHandler implements RequestHandler with no-op methods.
type NoOpHandler struct{}

func (NoOpHandler) HandleExport(*Message, *ExportPayload) error { return nil }
func (NoOpHandler) HandleSelect(*Message, *SelectPayload) error { return nil }
func (NoOpHandler) HandleAnswer(*Message, *Message)             {}

var _ RequestHandler = NoOpHandler{}

// SendFunc hands an outbound message to the connection layer.
type SendFunc func(*Message) error

// Router classifies each inbound frame as an answer to one of our requests
// (non-empty requestID) or a fresh request from CAD, and dispatches it.
// Every received request gets exactly one reply; handler failures degrade
// the reply status to error instead of propagating.
type Router struct {
	registry *Registry
	handler  RequestHandler
	send     SendFunc
}

// NewRouter creates a router over the given registry and handler.
func NewRouter(registry *Registry, handler RequestHandler, send SendFunc) *Router {
	return &Router{
		registry: registry,
		handler:  handler,
		send:     send,
	}
}

// Route is the entry point for raw frames from the connection.
func (rt *Router) Route(data []byte) {
	m, err := Decode(data)
	if err != nil {
		log.Printf("protocol: dropping undecodable frame: %v", err)
		return
	}
	if m.IsAnswer() {
		rt.routeAnswer(m)
		return
	}
	rt.routeRequest(m)
}

func (rt *Router) routeAnswer(m *Message) {
	origin, ok := rt.registry.Resolve(m.RequestID)
	if !ok {
		// Stale or duplicate answer. Ignore rather than fail.
		log.Printf("protocol: answer %s has no pending request %s (method=%s)", m.ID, m.RequestID, m.Method)
		return
	}
	if origin.Method != m.Method {
		log.Printf("protocol: answer %s method %q does not match request method %q, ignoring", m.ID, m.Method, origin.Method)
		return
	}
	rt.registry.Forget(m.RequestID)
	rt.handler.HandleAnswer(m, origin)
}

func (rt *Router) routeRequest(m *Message) {
	var err error
	switch m.Method {
	case MethodExport:
		var p ExportPayload
		if derr := m.DecodePayload(&p); derr != nil {
			err = &MalformedPayloadError{Method: m.Method, Err: derr}
		} else {
			err = rt.handler.HandleExport(m, &p)
		}
	case MethodSelectAC:
		var p SelectPayload
		if derr := m.DecodePayload(&p); derr != nil {
			err = &MalformedPayloadError{Method: m.Method, Err: derr}
		} else {
			err = rt.handler.HandleSelect(m, &p)
		}
	default:
		// Unrecognized methods are acknowledged with success, not
		// rejected. The CAD plugin sends verbs we don't act on.
	}

	status := StatusSuccess
	if err != nil {
		var malformed *MalformedPayloadError
		if errors.As(err, &malformed) {
			log.Printf("protocol: %v", malformed)
		} else {
			log.Printf("protocol: %s handler failed: %v", m.Method, err)
		}
		status = StatusError
	}

	reply, rerr := NewReply(m, status, nil)
	if rerr != nil {
		log.Printf("protocol: build reply for %s: %v", m.Method, rerr)
		return
	}
	if serr := rt.send(reply); serr != nil {
		log.Printf("protocol: send reply for %s: %v", m.Method, serr)
	}
}
