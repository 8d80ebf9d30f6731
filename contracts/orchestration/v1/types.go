// Package v1 holds the canonical wire types exchanged between the
// authorization registry, the domain router and the per-domain processors.
// These shapes cross module and bus boundaries and must stay backward
// compatible.
package v1

import (
	"encoding/json"
	"strings"
)

// DomainKind distinguishes the local chain from bridge-reachable chains.
type DomainKind string

const (
	DomainKindMain     DomainKind = "main"
	DomainKindExternal DomainKind = "external"
)

// Domain identifies the logical execution target of a function or batch.
type Domain struct {
	Kind DomainKind `json:"kind"`
	Name string     `json:"name,omitempty"`
}

// MainDomain is the local-chain execution target.
func MainDomain() Domain {
	return Domain{Kind: DomainKindMain}
}

// ExternalDomain targets a registered bridge-reachable chain by name.
func ExternalDomain(name string) Domain {
	return Domain{Kind: DomainKindExternal, Name: strings.TrimSpace(name)}
}

func (d Domain) IsMain() bool {
	return d.Kind == DomainKindMain
}

func (d Domain) Equal(other Domain) bool {
	if d.Kind != other.Kind {
		return false
	}
	return d.Kind == DomainKindMain || d.Name == other.Name
}

// String renders a stable routing key for logs and bus topics.
func (d Domain) String() string {
	if d.IsMain() {
		return "main"
	}
	return "external:" + d.Name
}

// Priority selects the processor lane a batch is queued on.
type Priority string

const (
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// NormalizePriority maps empty input to the default lane.
func NormalizePriority(p Priority) Priority {
	if p == PriorityHigh {
		return PriorityHigh
	}
	return PriorityMedium
}

// RetryTimesKind bounds how often a failing function is re-attempted.
type RetryTimesKind string

const (
	RetryNoRetry      RetryTimesKind = "no_retry"
	RetryIndefinitely RetryTimesKind = "indefinitely"
	RetryAmount       RetryTimesKind = "amount"
)

// RetryLogic is the per-function (non-atomic) or per-subroutine (atomic)
// retry policy. IntervalSeconds is the cooldown between attempts.
type RetryLogic struct {
	Times           RetryTimesKind `json:"times"`
	Amount          uint64         `json:"amount,omitempty"`
	IntervalSeconds int64          `json:"interval_seconds,omitempty"`
}

// BudgetRemaining reports whether the failure being handled still
// leaves an attempt in the budget, given consumed prior failures. An
// amount policy of n finalizes on the nth consecutive failure.
func (r RetryLogic) BudgetRemaining(consumed uint64) bool {
	switch r.Times {
	case RetryIndefinitely:
		return true
	case RetryAmount:
		return consumed+1 < r.Amount
	default:
		return false
	}
}

// MessageType tags the payload kind a library call carries. The core never
// interprets the business content behind it.
type MessageType string

const (
	MessageTypeExecute MessageType = "cosmwasm_execute_msg"
	MessageTypeMigrate MessageType = "cosmwasm_migrate_msg"
)

// Message is one opaque library call payload submitted by a caller.
type Message struct {
	Type   MessageType     `json:"type"`
	Body   json.RawMessage `json:"body"`
	CodeID uint64          `json:"code_id,omitempty"`
}

// ParamRestrictionKind selects a structural JSON check.
type ParamRestrictionKind string

const (
	ParamMustBeIncluded   ParamRestrictionKind = "must_be_included"
	ParamCannotBeIncluded ParamRestrictionKind = "cannot_be_included"
	ParamMustBeValue      ParamRestrictionKind = "must_be_value"
)

// ParamRestriction is a pure structural predicate over a message body.
// Keys is the nested object path the predicate applies to.
type ParamRestriction struct {
	Kind  ParamRestrictionKind `json:"kind"`
	Keys  []string             `json:"keys"`
	Value json.RawMessage      `json:"value,omitempty"`
}

// MessageDetails restricts the shape of the message a function accepts.
type MessageDetails struct {
	Type              MessageType        `json:"type"`
	ParamRestrictions []ParamRestriction `json:"param_restrictions,omitempty"`
}
