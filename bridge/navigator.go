package bridge

import "fdsbridge/scenario"

// Navigator is the editor's navigation surface. The bridge resolves a CAD
// selection into a route target and hands it off; what happens on screen is
// not this layer's business.
type Navigator interface {
	Navigate(target string, loc scenario.Location)
}

// routeTargets maps a located kind to the editor view that can display it.
// Opens share the mesh view and holes the obstruction view.
var routeTargets = map[scenario.Kind]string{
	scenario.KindMesh:   "fds/geometry/mesh",
	scenario.KindOpen:   "fds/geometry/mesh",
	scenario.KindSurf:   "fds/geometry/surface",
	scenario.KindObst:   "fds/geometry/obstruction",
	scenario.KindHole:   "fds/geometry/obstruction",
	scenario.KindVent:   "fds/ventilation/basic",
	scenario.KindJetfan: "fds/ventilation/jetfan",
	scenario.KindFire:   "fds/fire/fire",
	scenario.KindSlcf:   "fds/output/slice",
	scenario.KindDevc:   "fds/output/device",
}

// RouteTarget returns the route for a kind.
func RouteTarget(kind scenario.Kind) (string, bool) {
	target, ok := routeTargets[kind]
	return target, ok
}

// EventNavigator publishes navigation requests on the event bus, where the
// www layer streams them to the front-end.
type EventNavigator struct {
	bus *EventBus
}

// NewEventNavigator creates a navigator emitting on bus.
func NewEventNavigator(bus *EventBus) *EventNavigator {
	return &EventNavigator{bus: bus}
}

func (n *EventNavigator) Navigate(target string, loc scenario.Location) {
	n.bus.Emit(Event{
		Type: EventNavigate,
		Payload: NavigateEvent{
			Target: target,
			Kind:   loc.Kind,
			Index:  loc.Index,
			IDAC:   loc.IDAC,
		},
	})
}
