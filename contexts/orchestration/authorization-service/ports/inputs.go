package ports

import (
	"time"

	"maestro/contexts/orchestration/authorization-service/domain/entities"
	orchv1 "maestro/contracts/orchestration/v1"
)

// AuthorizationInput is the transport-agnostic creation payload for one
// authorization.
type AuthorizationInput struct {
	Label                   string
	Mode                    entities.AuthorizationMode
	Subroutine              orchv1.Subroutine
	Priority                orchv1.Priority
	NotBefore               time.Time
	Expiration              time.Time
	MaxConcurrentExecutions uint64
	// Grants seeds the permitted callers for permissioned modes.
	Grants []GrantInput
}

// GrantInput permits one grantee, optionally bounded to a use count.
type GrantInput struct {
	Grantee   string
	Unlimited bool
	Uses      uint64
}

// ModifyAuthorizationInput carries the mutable authorization fields; nil
// pointers leave the current value untouched.
type ModifyAuthorizationInput struct {
	NotBefore               *time.Time
	Expiration              *time.Time
	MaxConcurrentExecutions *uint64
	Priority                *orchv1.Priority
}

// ExternalDomainInput registers one bridge-reachable domain.
type ExternalDomainInput struct {
	Name             string
	Environment      entities.ExecutionEnvironment
	ProcessorAddress string
	CallbackOrigin   string
	Polytone         *entities.PolytoneConfig
	Hyperlane        *entities.HyperlaneConfig
}
