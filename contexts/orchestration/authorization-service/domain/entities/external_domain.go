package entities

import (
	"fmt"
	"strings"
	"time"
)

// ExecutionEnvironment selects the bridge protocol used to reach an
// external domain's processor.
type ExecutionEnvironment string

const (
	// EnvironmentCosmwasm bridges via Polytone note/voice/proxy contracts.
	EnvironmentCosmwasm ExecutionEnvironment = "cosmwasm"
	// EnvironmentEvm bridges via a Hyperlane mailbox dispatch.
	EnvironmentEvm ExecutionEnvironment = "evm"
)

// PolytoneConfig addresses the note contract on the main domain and bounds
// relay latency for calls into a CosmWasm external domain.
type PolytoneConfig struct {
	NoteAddress    string
	VoiceAddress   string
	TimeoutSeconds int64
}

// HyperlaneConfig addresses the mailbox and destination for an EVM
// external domain. ABI translation is an external encoder collaborator.
type HyperlaneConfig struct {
	MailboxAddress string
	DomainID       uint32
}

// ProxyState is the lifecycle of the remote proxy account created lazily
// for a Polytone-bridged domain.
type ProxyState string

const (
	ProxyStatePendingResponse ProxyState = "pending_response"
	ProxyStateCreated         ProxyState = "created"
	ProxyStateTimedOut        ProxyState = "timed_out"
	ProxyStateUnexpectedError ProxyState = "unexpected_error"
)

// ExternalDomain registers a bridge-reachable chain. Names are unique and
// can never be re-added once registered.
type ExternalDomain struct {
	Name             string
	Environment      ExecutionEnvironment
	ProcessorAddress string
	// CallbackOrigin is the relayer identity allowed to deliver this
	// domain's callbacks into the registry.
	CallbackOrigin string
	Polytone       *PolytoneConfig
	Hyperlane      *HyperlaneConfig
	ProxyState     ProxyState
	ProxyError     string
	RegisteredAt   time.Time
}

// Reachable reports whether the registry may route batches to this
// domain's processor.
func (d ExternalDomain) Reachable() (bool, string) {
	if d.Environment == EnvironmentCosmwasm && d.ProxyState != ProxyStateCreated {
		return false, fmt.Sprintf("polytone proxy not created (state %s)", d.ProxyState)
	}
	return true, ""
}

// ExecutionEnvironmentFromLabel parses a string into an
// ExecutionEnvironment.
func ExecutionEnvironmentFromLabel(value string) (ExecutionEnvironment, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "cosmwasm":
		return EnvironmentCosmwasm, nil
	case "evm":
		return EnvironmentEvm, nil
	default:
		return "", fmt.Errorf("unknown execution environment: %s", value)
	}
}
