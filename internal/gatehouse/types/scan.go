package types

// Direction classifies a scan as an entry into or an exit from the store.
type Direction string

const (
	DirectionEntry Direction = "ENTRY"
	DirectionExit  Direction = "EXIT"
)

// DecisionSource records which authority produced an access decision.
type DecisionSource string

const (
	// SourceCloud means the remote authority answered within the deadline.
	SourceCloud DecisionSource = "CLOUD"
	// SourceLocal means the fallback authority decided in degraded mode.
	SourceLocal DecisionSource = "LOCAL"
	// SourceErrorDefault means an internal error forced the documented
	// fail-open-on-entry default.
	SourceErrorDefault DecisionSource = "ERROR_DEFAULT"
)

// MembershipStatus is the lifecycle state of a customer record.
type MembershipStatus string

const (
	MembershipPending   MembershipStatus = "PENDING"
	MembershipActive    MembershipStatus = "ACTIVE"
	MembershipSuspended MembershipStatus = "SUSPENDED"
)

type ScanRequest struct {
	NodeID      string `json:"node_id"`
	Identifier  string `json:"identifier"`
	RequestedAt string `json:"requested_at,omitempty"` // optional device timestamp
}

type ScanResponse struct {
	OK         bool   `json:"ok"`
	Known      bool   `json:"known"`
	Granted    bool   `json:"granted"`
	Direction  string `json:"direction,omitempty"`
	Message    string `json:"message,omitempty"`
	NodeID     string `json:"node_id"`
	ServerTime string `json:"server_time"`
}
