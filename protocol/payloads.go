package protocol

import "encoding/json"

// SelectPayload identifies a single element by the id the CAD side assigned
// to it. Used by selectObjectAc (CAD asks us to focus an element) and by
// selectObjectWeb (we tell CAD which element is focused here).
type SelectPayload struct {
	IDAC int64 `json:"idAC"`
}

// ExportPayload is the full geometry push from CAD. Records are kept raw;
// the transformer converts them into domain elements per kind. The grouping
// mirrors the CAD plugin's export layout.
type ExportPayload struct {
	ACFile string `json:"acFile"`
	ACPath string `json:"acPath"`

	Geometry struct {
		Meshes []json.RawMessage `json:"meshes"`
		Opens  []json.RawMessage `json:"opens"`
		Obsts  []json.RawMessage `json:"obsts"`
		Holes  []json.RawMessage `json:"holes"`
		Surfs  []json.RawMessage `json:"surfs"`
	} `json:"geometry"`

	Ventilation struct {
		Surfs   []json.RawMessage `json:"surfs"`
		Vents   []json.RawMessage `json:"vents"`
		Jetfans []json.RawMessage `json:"jetfans"`
	} `json:"ventilation"`

	Fires struct {
		Fires []json.RawMessage `json:"fires"`
	} `json:"fires"`

	Output struct {
		Devcs []json.RawMessage `json:"devcs"`
		Slcfs []json.RawMessage `json:"slcfs"`
	} `json:"output"`
}
