package entities

import "time"

// Environment is the execution environment of a routed external domain.
type Environment string

const (
	EnvironmentCosmwasm Environment = "cosmwasm"
	EnvironmentEVM      Environment = "evm"
)

// PolytoneRoute is the note/voice pair bridging a CosmWasm domain.
type PolytoneRoute struct {
	NoteAddress    string `json:"note_address"`
	VoiceAddress   string `json:"voice_address"`
	TimeoutSeconds uint64 `json:"timeout_seconds"`
}

// HyperlaneRoute is the mailbox bridging an EVM domain.
type HyperlaneRoute struct {
	MailboxAddress string `json:"mailbox_address"`
	DomainID       uint32 `json:"domain_id"`
}

// RouteTarget is one external domain the router can dispatch to.
// CallbackOrigin is the relayer identity bridge callbacks are delivered
// under; the registry only accepts callbacks from that identity.
type RouteTarget struct {
	Name             string
	Environment      Environment
	ProcessorAddress string
	CallbackOrigin   string
	Caller           string
	Polytone         *PolytoneRoute
	Hyperlane        *HyperlaneRoute
	ProxyCreated     bool
	RegisteredAt     time.Time
}

// Reachable reports whether regular traffic may be dispatched to the
// target. CosmWasm domains require a materialized proxy first.
func (t RouteTarget) Reachable() bool {
	if t.Environment == EnvironmentCosmwasm {
		return t.ProxyCreated
	}
	return true
}
