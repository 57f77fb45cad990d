// Package types holds the wire types shared between the daemon's HTTP
// surface and its clients.
package types

import (
	"github.com/osctools/dcocal/pkg/dco"
)

// StateInfo is the controller snapshot served at /state.
type StateInfo struct {
	State string `json:"state"`
	// FatalKind is the blink code of the terminal error state, 0 otherwise.
	FatalKind int `json:"fatalKind"`
	// FatalName is the symbolic error kind, empty outside FATAL.
	FatalName string `json:"fatalName,omitempty"`
	// RunIndex is the active target index while running.
	RunIndex int `json:"runIndex"`
	// RunKHz is the nominal frequency of the active target while running.
	RunKHz uint32 `json:"runKHz,omitempty"`
}

// Attempt is one recorded search attempt, kept when diagnostics are on.
type Attempt struct {
	TargetIndex int        `json:"targetIndex"`
	GoalCount   uint16     `json:"goalCount"`
	Config      dco.Config `json:"config"`
	Measured    uint16     `json:"measured"`
	ErrorPct    int        `json:"errorPct"`
	Accepted    bool       `json:"accepted"`
}

// StateChange is the SSE payload published on controller transitions.
type StateChange struct {
	From      string `json:"from"`
	To        string `json:"to"`
	FatalKind int    `json:"fatalKind,omitempty"`
	Ts        int64  `json:"ts"`
}
