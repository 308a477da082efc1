package messaging

import (
	"log"

	"fdsbridge/bridge"
)

// SetupBridgeListeners forwards bridge events to the broker. Publish errors
// are logged and dropped; the protocol layer never waits on the broker.
func SetupBridgeListeners(pub *Publisher, bus *bridge.EventBus) {
	if !pub.Enabled() {
		return
	}
	bus.Subscribe(func(evt bridge.Event) {
		var name string
		switch evt.Type {
		case bridge.EventGeometrySynced:
			name = "geometry-synced"
		case bridge.EventNavigate:
			name = "element-selected"
		case bridge.EventConnectionUp:
			name = "cad-connected"
		case bridge.EventConnectionDown:
			name = "cad-disconnected"
		default:
			return
		}
		if err := pub.PublishEvent(name, evt.Payload); err != nil {
			log.Printf("messaging: publish %s: %v", name, err)
		}
	})
	log.Printf("messaging: bridge events forwarded to %s", pub.cfg.EventsTopic)
}
