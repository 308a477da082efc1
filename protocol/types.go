package protocol

// Method names recognized on the CAD link. These are case-sensitive wire
// literals shared with the CAD plugin.
const (
	// CAD -> bridge requests
	MethodExport   = "fExport"
	MethodSelectAC = "selectObjectAc"

	// bridge -> CAD requests
	MethodSelectWeb   = "selectObjectWeb"
	MethodGetGeometry = "getCadGeometryWeb"
)

// Message statuses.
const (
	StatusWaiting = "waiting"
	StatusSuccess = "success"
	StatusError   = "error"
)
