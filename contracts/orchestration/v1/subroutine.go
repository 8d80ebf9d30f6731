package v1

import "encoding/json"

// SubroutineKind selects the execution semantics of a batch.
type SubroutineKind string

const (
	SubroutineAtomic    SubroutineKind = "atomic"
	SubroutineNonAtomic SubroutineKind = "non_atomic"
)

// AtomicFunction is one library call slot inside a subroutine.
type AtomicFunction struct {
	Domain          Domain         `json:"domain"`
	ContractAddress string         `json:"contract_address"`
	MessageDetails  MessageDetails `json:"message_details"`
}

// FunctionCallback asks a collaborator to confirm a non-atomic function
// before the batch advances past it.
type FunctionCallback struct {
	Address string          `json:"address"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NonAtomicFunction carries its own retry policy and optional confirmation.
type NonAtomicFunction struct {
	Domain          Domain            `json:"domain"`
	ContractAddress string            `json:"contract_address"`
	MessageDetails  MessageDetails    `json:"message_details"`
	Retry           *RetryLogic       `json:"retry,omitempty"`
	Confirmation    *FunctionCallback `json:"confirmation,omitempty"`
}

// AtomicSubroutine shares one retry policy across all functions; a failure
// anywhere reverts the whole batch.
type AtomicSubroutine struct {
	Functions []AtomicFunction `json:"functions"`
	Retry     *RetryLogic      `json:"retry,omitempty"`
}

// NonAtomicSubroutine executes one function per eligible tick and resumes
// from the failing function, never from the start.
type NonAtomicSubroutine struct {
	Functions []NonAtomicFunction `json:"functions"`
}

// Subroutine is the tagged union of the two execution modes.
type Subroutine struct {
	Kind      SubroutineKind       `json:"kind"`
	Atomic    *AtomicSubroutine    `json:"atomic,omitempty"`
	NonAtomic *NonAtomicSubroutine `json:"non_atomic,omitempty"`
}

func (s Subroutine) IsAtomic() bool {
	return s.Kind == SubroutineAtomic
}

// FunctionCount returns the number of call slots in the subroutine.
func (s Subroutine) FunctionCount() int {
	switch s.Kind {
	case SubroutineAtomic:
		if s.Atomic == nil {
			return 0
		}
		return len(s.Atomic.Functions)
	case SubroutineNonAtomic:
		if s.NonAtomic == nil {
			return 0
		}
		return len(s.NonAtomic.Functions)
	default:
		return 0
	}
}

// TargetDomain is the domain of the first function. Creation-time
// validation guarantees every function shares it.
func (s Subroutine) TargetDomain() (Domain, bool) {
	switch s.Kind {
	case SubroutineAtomic:
		if s.Atomic == nil || len(s.Atomic.Functions) == 0 {
			return Domain{}, false
		}
		return s.Atomic.Functions[0].Domain, true
	case SubroutineNonAtomic:
		if s.NonAtomic == nil || len(s.NonAtomic.Functions) == 0 {
			return Domain{}, false
		}
		return s.NonAtomic.Functions[0].Domain, true
	default:
		return Domain{}, false
	}
}

// FunctionAt returns the call slot details for index i as the flattened
// (domain, contract, details, retry, confirmation) view the processor uses.
func (s Subroutine) FunctionAt(i int) (FunctionSlot, bool) {
	switch s.Kind {
	case SubroutineAtomic:
		if s.Atomic == nil || i < 0 || i >= len(s.Atomic.Functions) {
			return FunctionSlot{}, false
		}
		fn := s.Atomic.Functions[i]
		return FunctionSlot{
			Domain:          fn.Domain,
			ContractAddress: fn.ContractAddress,
			MessageDetails:  fn.MessageDetails,
			Retry:           s.Atomic.Retry,
		}, true
	case SubroutineNonAtomic:
		if s.NonAtomic == nil || i < 0 || i >= len(s.NonAtomic.Functions) {
			return FunctionSlot{}, false
		}
		fn := s.NonAtomic.Functions[i]
		return FunctionSlot{
			Domain:          fn.Domain,
			ContractAddress: fn.ContractAddress,
			MessageDetails:  fn.MessageDetails,
			Retry:           fn.Retry,
			Confirmation:    fn.Confirmation,
		}, true
	default:
		return FunctionSlot{}, false
	}
}

// FunctionSlot is the mode-independent view of one call slot.
type FunctionSlot struct {
	Domain          Domain
	ContractAddress string
	MessageDetails  MessageDetails
	Retry           *RetryLogic
	Confirmation    *FunctionCallback
}
