package scenario

import (
	"encoding/json"
	"sync"
)

// Kind identifies one of the scenario's geometry collections.
type Kind string

const (
	KindMesh   Kind = "mesh"
	KindOpen   Kind = "open"
	KindObst   Kind = "obst"
	KindHole   Kind = "hole"
	KindVent   Kind = "vent"
	KindJetfan Kind = "jetfan"
	KindFire   Kind = "fire"
	KindSlcf   Kind = "slcf"
	KindDevc   Kind = "devc"
	KindSurf   Kind = "surf"
)

// InertSurfID is the id of the default surface layer. It is re-seeded after
// every geometry export and is never editable or deletable.
const InertSurfID = "inert"

// Element is one geometry record. ID is the editor's own identifier; IDAC is
// the integer the CAD side assigned (0 when the element never came from CAD).
// Kind-specific fields ride along opaquely in Params; this layer only does
// identity bookkeeping.
type Element struct {
	ID       string          `json:"id"`
	IDAC     int64           `json:"idAC,omitempty"`
	Editable bool            `json:"editable"`
	Params   json.RawMessage `json:"params,omitempty"`
}

// Scenario holds the named geometry collections of one FDS scenario.
// Collections are ordered and insertion-order significant; lookup is a
// linear scan on IDAC. IDAC values are unique within a kind but may repeat
// across kinds, which is why the locator scans in a fixed order.
//
// The mutex guards the collections and drawing metadata: exports swap them
// on the connection's read goroutine while HTTP handlers read and marshal
// concurrently. A reader still sees whole collections only, never a
// half-built one, and may observe an export mid-application across kinds.
type Scenario struct {
	mu sync.RWMutex

	ID     string `json:"id"`
	Name   string `json:"name"`
	ACFile string `json:"acFile"`
	ACPath string `json:"acPath"`

	Meshes  []Element `json:"meshes"`
	Opens   []Element `json:"opens"`
	Obsts   []Element `json:"obsts"`
	Holes   []Element `json:"holes"`
	Vents   []Element `json:"vents"`
	Jetfans []Element `json:"jetfans"`
	Fires   []Element `json:"fires"`
	Slcfs   []Element `json:"slcfs"`
	Devcs   []Element `json:"devcs"`
	Surfs   []Element `json:"surfs"`
}

// New creates an empty scenario seeded with the inert surface layer.
func New(id, name string) *Scenario {
	return &Scenario{
		ID:    id,
		Name:  name,
		Surfs: []Element{inertSurf()},
	}
}

func inertSurf() Element {
	return Element{ID: InertSurfID, Editable: false}
}

// Collection returns the elements of one kind. The returned slice is the
// live collection, not a copy; exports never mutate it in place, they swap
// in a fresh slice, so holding one across an export is safe.
func (s *Scenario) Collection(kind Kind) []Element {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collection(kind)
}

func (s *Scenario) collection(kind Kind) []Element {
	switch kind {
	case KindMesh:
		return s.Meshes
	case KindOpen:
		return s.Opens
	case KindObst:
		return s.Obsts
	case KindHole:
		return s.Holes
	case KindVent:
		return s.Vents
	case KindJetfan:
		return s.Jetfans
	case KindFire:
		return s.Fires
	case KindSlcf:
		return s.Slcfs
	case KindDevc:
		return s.Devcs
	case KindSurf:
		return s.Surfs
	}
	return nil
}

// replaceCollection swaps one kind's collection for a freshly built slice.
// Readers see either the old or the new collection, never a half-built one.
func (s *Scenario) replaceCollection(kind Kind, elems []Element) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch kind {
	case KindMesh:
		s.Meshes = elems
	case KindOpen:
		s.Opens = elems
	case KindObst:
		s.Obsts = elems
	case KindHole:
		s.Holes = elems
	case KindVent:
		s.Vents = elems
	case KindJetfan:
		s.Jetfans = elems
	case KindFire:
		s.Fires = elems
	case KindSlcf:
		s.Slcfs = elems
	case KindDevc:
		s.Devcs = elems
	case KindSurf:
		s.Surfs = elems
	}
}

// SetMeta records the CAD drawing file the scenario is linked to.
func (s *Scenario) SetMeta(acFile, acPath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acFile != "" {
		s.ACFile = acFile
	}
	if acPath != "" {
		s.ACPath = acPath
	}
}

// Meta returns the linked CAD drawing file and path.
func (s *Scenario) Meta() (acFile, acPath string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ACFile, s.ACPath
}

// Counts returns the element count per kind.
func (s *Scenario) Counts() map[Kind]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[Kind]int, len(allKinds))
	for _, k := range allKinds {
		counts[k] = len(s.collection(k))
	}
	return counts
}

// scenarioJSON keeps the default field encoding available under the lock
// taken in MarshalJSON.
type scenarioJSON Scenario

// MarshalJSON snapshots the scenario under the read lock so HTTP handlers
// and the store can serialize it while an export is being applied.
func (s *Scenario) MarshalJSON() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return json.Marshal((*scenarioJSON)(s))
}

var allKinds = []Kind{
	KindMesh, KindOpen, KindObst, KindHole, KindVent,
	KindJetfan, KindFire, KindSlcf, KindDevc, KindSurf,
}

// Kinds returns every tracked kind.
func Kinds() []Kind {
	out := make([]Kind, len(allKinds))
	copy(out, allKinds)
	return out
}

// ValidKind reports whether kind names a tracked collection.
func ValidKind(kind Kind) bool {
	for _, k := range allKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Manager owns the current scenario. The surrounding application creates
// and replaces scenarios; protocol handlers read the current one through
// here instead of ambient state.
type Manager struct {
	mu      sync.RWMutex
	current *Scenario
}

// NewManager creates a manager with no scenario loaded.
func NewManager() *Manager {
	return &Manager{}
}

// Current returns the loaded scenario, or nil when none is loaded.
func (m *Manager) Current() *Scenario {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Replace swaps the loaded scenario (nil unloads it).
func (m *Manager) Replace(s *Scenario) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = s
}
