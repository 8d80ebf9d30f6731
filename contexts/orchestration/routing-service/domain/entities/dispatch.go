package entities

import (
	"encoding/json"
	"time"

	orchv1 "maestro/contracts/orchestration/v1"
)

// DispatchKind selects how a routed message travels to its processor.
type DispatchKind string

const (
	DispatchDirect    DispatchKind = "direct"
	DispatchPolytone  DispatchKind = "polytone"
	DispatchHyperlane DispatchKind = "hyperlane"
)

// DirectDispatch invokes the main-domain processor in-process.
type DirectDispatch struct {
	ProcessorAddress string
	Caller           string
	Msg              orchv1.ProcessorMessage
}

// PolytoneDispatch sends a control message through a Polytone note. A nil
// Msg is the empty call that materializes the remote proxy account.
type PolytoneDispatch struct {
	NoteAddress    string
	DomainName     string
	Caller         string
	Msg            *orchv1.ProcessorMessage
	TimeoutSeconds uint64
}

// HyperlaneDispatch sends an opaque body to an EVM-domain processor via a
// Hyperlane mailbox. Body encoding for the target VM happens outside the
// router.
type HyperlaneDispatch struct {
	MailboxAddress      string
	DestinationDomainID uint32
	DomainName          string
	Recipient           string
	Caller              string
	Body                json.RawMessage
}

// Dispatch is the tagged union of the three transport legs.
type Dispatch struct {
	Kind      DispatchKind
	Direct    *DirectDispatch
	Polytone  *PolytoneDispatch
	Hyperlane *HyperlaneDispatch
}

// PolytoneExecutePayload is the bridge wire payload for one Polytone
// execute envelope. SentAt plus the timeout bounds staleness on the voice
// side.
type PolytoneExecutePayload struct {
	DomainName     string                   `json:"domain_name"`
	Caller         string                   `json:"caller"`
	Msg            *orchv1.ProcessorMessage `json:"msg,omitempty"`
	TimeoutSeconds uint64                   `json:"timeout_seconds"`
	SentAt         time.Time                `json:"sent_at"`
}

// HyperlaneDispatchPayload is the bridge wire payload for one Hyperlane
// mailbox envelope.
type HyperlaneDispatchPayload struct {
	DomainName string          `json:"domain_name"`
	DomainID   uint32          `json:"domain_id"`
	Recipient  string          `json:"recipient"`
	Caller     string          `json:"caller"`
	Body       json.RawMessage `json:"body"`
}

// BridgeCallbackKind separates execution results from proxy lifecycle
// notifications on the callback topic.
type BridgeCallbackKind string

const (
	BridgeCallbackExecution BridgeCallbackKind = "execution"
	BridgeCallbackProxy     BridgeCallbackKind = "proxy"
)

// BridgeCallbackPayload is the wire payload relayed back to the main
// domain after bridge or processor activity on an external domain.
type BridgeCallbackPayload struct {
	Kind      BridgeCallbackKind        `json:"kind"`
	Domain    string                    `json:"domain"`
	Execution *orchv1.ExecutionCallback `json:"execution,omitempty"`
	Proxy     *orchv1.ProxyCallback     `json:"proxy,omitempty"`
}
