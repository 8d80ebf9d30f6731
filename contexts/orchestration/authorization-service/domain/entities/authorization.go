package entities

import (
	"fmt"
	"strings"
	"time"

	orchv1 "maestro/contracts/orchestration/v1"
)

// AuthorizationMode describes who may trigger an authorization.
type AuthorizationMode string

const (
	// ModePermissionless lets any caller trigger the authorization.
	ModePermissionless AuthorizationMode = "permissionless"
	// ModePermissionedWithoutLimit restricts callers to the grant set.
	ModePermissionedWithoutLimit AuthorizationMode = "permissioned_without_limit"
	// ModePermissionedWithLimit additionally consumes one grant use per send.
	ModePermissionedWithLimit AuthorizationMode = "permissioned_with_limit"
)

// AuthorizationState gates whether sends are accepted.
type AuthorizationState string

const (
	StateEnabled  AuthorizationState = "enabled"
	StateDisabled AuthorizationState = "disabled"
)

// Authorization is a named, access-controlled template for an allowed
// subroutine on a single domain.
type Authorization struct {
	Label                   string
	Mode                    AuthorizationMode
	Subroutine              orchv1.Subroutine
	Priority                orchv1.Priority
	NotBefore               time.Time
	Expiration              time.Time
	MaxConcurrentExecutions uint64
	State                   AuthorizationState
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// Permissioned reports whether the mode requires a grant.
func (a Authorization) Permissioned() bool {
	return a.Mode == ModePermissionedWithoutLimit || a.Mode == ModePermissionedWithLimit
}

// ActiveAt reports whether the authorization accepts sends at the given
// instant, ignoring its enabled state.
func (a Authorization) ActiveAt(now time.Time) (bool, string) {
	if !a.NotBefore.IsZero() && now.Before(a.NotBefore) {
		return false, "not yet valid"
	}
	if !a.Expiration.IsZero() && !now.Before(a.Expiration) {
		return false, "expired"
	}
	return true, ""
}

// AuthorizationModeFromLabel parses a string into an AuthorizationMode.
func AuthorizationModeFromLabel(value string) (AuthorizationMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "permissionless", "":
		return ModePermissionless, nil
	case "permissioned_without_limit":
		return ModePermissionedWithoutLimit, nil
	case "permissioned_with_limit":
		return ModePermissionedWithLimit, nil
	default:
		return "", fmt.Errorf("unknown authorization mode: %s", value)
	}
}

// MintGrant records a grantee's right to trigger a permissioned
// authorization. RemainingUses is ignored when Unlimited is set.
type MintGrant struct {
	Label         string
	Grantee       string
	Unlimited     bool
	RemainingUses uint64
	UpdatedAt     time.Time
}
