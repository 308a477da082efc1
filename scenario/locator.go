package scenario

import "errors"

// ErrNotFound reports that no collection contains the queried CAD id. It is
// a lookup miss, not a failure.
var ErrNotFound = errors.New("scenario: element not found")

// Location identifies where a CAD id was found.
type Location struct {
	Kind  Kind  `json:"kind"`
	Index int   `json:"index"`
	IDAC  int64 `json:"idAC"`
}

// locatePriority is the fixed scan order. A CAD id reused across kinds is
// resolved deterministically to the earliest kind in this sequence.
var locatePriority = []Kind{
	KindMesh, KindOpen, KindObst, KindHole, KindVent,
	KindJetfan, KindFire, KindSlcf, KindDevc,
}

// Locate scans the collections in priority order for the element CAD knows
// as idAC and stops at the first match.
func (s *Scenario) Locate(idAC int64) (Location, error) {
	if idAC == 0 {
		// 0 marks elements that never came from CAD.
		return Location{}, ErrNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, kind := range locatePriority {
		for i, elem := range s.collection(kind) {
			if elem.IDAC == idAC {
				return Location{Kind: kind, Index: i, IDAC: idAC}, nil
			}
		}
	}
	return Location{}, ErrNotFound
}
