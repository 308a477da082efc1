package scenario

import (
	"encoding/json"
	"errors"
	"fmt"

	"fdsbridge/protocol"
)

// Transformer converts CAD-native records of one kind into domain elements.
// The current collection is passed as context so an implementation can carry
// editor-side state over to re-exported elements. The real transform lives
// in the CAD adapter; this layer only calls it.
type Transformer interface {
	Transform(kind Kind, raw []json.RawMessage, current []Element) ([]Element, error)
}

// TransformerFunc adapts a function to the Transformer interface.
type TransformerFunc func(kind Kind, raw []json.RawMessage, current []Element) ([]Element, error)

func (f TransformerFunc) Transform(kind Kind, raw []json.RawMessage, current []Element) ([]Element, error) {
	return f(kind, raw, current)
}

// TransformError reports a failure converting one kind during an export.
// Other kinds are unaffected.
type TransformError struct {
	Kind Kind
	Err  error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform %s: %v", e.Kind, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }

// Synchronizer applies CAD geometry exports to a scenario with a
// replace-collection strategy: per kind, the transformer rebuilds the
// collection from the raw records and the result replaces the old contents
// wholesale. Elements the CAD side stops reporting are intentionally
// dropped; there is no diff or merge.
type Synchronizer struct {
	tr Transformer
}

// NewSynchronizer creates a synchronizer over the given transformer.
func NewSynchronizer(tr Transformer) *Synchronizer {
	return &Synchronizer{tr: tr}
}

// ApplyExport replaces every tracked collection from the payload. A kind
// whose transform fails keeps its old collection and is reported as a
// TransformError; the remaining kinds are still processed. The returned
// error joins one TransformError per failed kind, nil when all succeeded.
func (sy *Synchronizer) ApplyExport(s *Scenario, p *protocol.ExportPayload) error {
	var errs []error

	apply := func(kind Kind, raw []json.RawMessage) {
		elems, err := sy.tr.Transform(kind, raw, s.Collection(kind))
		if err != nil {
			errs = append(errs, &TransformError{Kind: kind, Err: err})
			return
		}
		if kind == KindSurf {
			// The inert default layer survives every export, ahead of
			// whatever CAD reported.
			elems = append([]Element{inertSurf()}, withoutInert(elems)...)
		}
		s.replaceCollection(kind, elems)
	}

	// Devices first, then surfaces, matching the CAD export layout. Order
	// across kinds does not affect correctness, only which kinds are
	// already swapped when a later one fails.
	apply(KindDevc, p.Output.Devcs)
	apply(KindSurf, append(p.Geometry.Surfs, p.Ventilation.Surfs...))
	apply(KindMesh, p.Geometry.Meshes)
	apply(KindOpen, p.Geometry.Opens)
	apply(KindObst, p.Geometry.Obsts)
	apply(KindHole, p.Geometry.Holes)
	apply(KindVent, p.Ventilation.Vents)
	apply(KindJetfan, p.Ventilation.Jetfans)
	apply(KindFire, p.Fires.Fires)
	apply(KindSlcf, p.Output.Slcfs)

	return errors.Join(errs...)
}

// withoutInert strips any inert entry the transformer produced so the
// seeded default stays the only one.
func withoutInert(elems []Element) []Element {
	out := elems[:0]
	for _, e := range elems {
		if e.ID == InertSurfID {
			continue
		}
		out = append(out, e)
	}
	return out
}

// RawTransformer is a minimal Transformer that lifts raw CAD records into
// elements by reading their id and idAC fields and keeping the rest as
// opaque params. It stands in until a CAD-specific transform is wired.
type RawTransformer struct{}

func (RawTransformer) Transform(kind Kind, raw []json.RawMessage, current []Element) ([]Element, error) {
	elems := make([]Element, 0, len(raw))
	for i, rec := range raw {
		var fields struct {
			ID   string `json:"id"`
			IDAC int64  `json:"idAC"`
		}
		if err := json.Unmarshal(rec, &fields); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if fields.ID == "" {
			fields.ID = fmt.Sprintf("%s-%d", kind, fields.IDAC)
		}
		elems = append(elems, Element{
			ID:       fields.ID,
			IDAC:     fields.IDAC,
			Editable: true,
			Params:   rec,
		})
	}
	return elems, nil
}
