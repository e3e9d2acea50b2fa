package types

// TerminalVersion identifies the connected terminal build.
type TerminalVersion struct {
	Terminal int    `json:"terminal"`
	Build    int    `json:"build"`
	Released string `json:"released"`
}
