package mcp

// StepInput defines the input for the gravsim_step tool.
type StepInput struct {
	Ticks int `json:"ticks,omitempty" jsonschema:"Number of ticks to advance (1 to 10000, default 1)"`
}

// FrameOutput is a committed frame as returned by gravsim_step and
// gravsim_positions.
type FrameOutput struct {
	Tick      uint64       `json:"tick" jsonschema:"Tick number of the frame"`
	Time      float64      `json:"time" jsonschema:"Simulated time in seconds"`
	Positions [][3]float32 `json:"positions" jsonschema:"Body positions as [x, y, z], indexed by body"`
	Bodies    int          `json:"bodies" jsonschema:"Number of bodies"`
}

// PositionsInput defines the input for the gravsim_positions tool.
type PositionsInput struct {
	Bodies []int `json:"bodies,omitempty" jsonschema:"Body indices to return; all bodies when empty"`
}

// DiagnosticsInput defines the input for the gravsim_diagnostics tool.
type DiagnosticsInput struct{}

// DiagnosticsOutput reports conserved-quantity estimates at the latest tick.
type DiagnosticsOutput struct {
	Tick            uint64     `json:"tick" jsonschema:"Tick the report was taken at"`
	Bodies          int        `json:"bodies" jsonschema:"Number of bodies"`
	TotalMass       float64    `json:"total_mass" jsonschema:"Sum of body masses"`
	Momentum        [3]float64 `json:"momentum" jsonschema:"Total momentum vector"`
	CenterOfMass    [3]float64 `json:"center_of_mass" jsonschema:"Mass-weighted mean position"`
	KineticEnergy   float64    `json:"kinetic_energy" jsonschema:"Total kinetic energy"`
	PotentialEnergy float64    `json:"potential_energy" jsonschema:"Total pairwise potential energy"`
	TotalEnergy     float64    `json:"total_energy" jsonschema:"Kinetic plus potential energy"`
	NonFinite       int        `json:"non_finite" jsonschema:"Bodies with a NaN or infinite position; energies are zeroed when non-zero"`
}
