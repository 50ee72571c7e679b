package model

import "time"

// Peer pass outcomes as reported by the status API.
const (
	PeerUpdated     = "updated"
	PeerUnchanged   = "unchanged"
	PeerSkipped     = "skipped"
	PeerUnreachable = "unreachable"
)

// RouteChange records one applied route-MTU mutation.
type RouteChange struct {
	Peer        string    `json:"peer"`
	Destination string    `json:"destination"`
	Device      string    `json:"device"`
	OldMTU      int       `json:"oldMtu"` // 0 = no override was set
	NewMTU      int       `json:"newMtu"` // 0 = override cleared
	Time        time.Time `json:"time"`
}

// PeerReport summarizes one peer within a pass.
type PeerReport struct {
	Peer       string `json:"peer"`
	Endpoint   string `json:"endpoint,omitempty"`
	Outcome    string `json:"outcome"`
	Reason     string `json:"reason,omitempty"`
	PathMTU    int    `json:"pathMtu,omitempty"`
	PmtuCached bool   `json:"pmtuCached,omitempty"`
	EgressDev  string `json:"egressDev,omitempty"`
	TargetMTU  int    `json:"targetMtu,omitempty"` // 0 = no override
	Changed    int    `json:"changed"`
	Unchanged  int    `json:"unchanged"`
	DestErrors int    `json:"destErrors"`
}

// RunReport is the result of a full reconciliation pass.
type RunReport struct {
	Interface  string        `json:"interface"`
	TunnelMTU  int           `json:"tunnelMtu"`
	Started    time.Time     `json:"started"`
	Duration   time.Duration `json:"duration"`
	Peers      []PeerReport  `json:"peers"`
	Changes    []RouteChange `json:"changes"`
	PeerErrors int           `json:"peerErrors"`
}
