package application

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"maestro/contexts/orchestration/authorization-service/domain/entities"
	domainerrors "maestro/contexts/orchestration/authorization-service/domain/errors"
	"maestro/contexts/orchestration/authorization-service/ports"
	orchv1 "maestro/contracts/orchestration/v1"
)

// Service is the authorization registry: it owns authorization
// definitions, the external-domain registry, access control and callback
// bookkeeping. Callers interact with it directly on the main domain only.
type Service struct {
	Repo   ports.Repository
	Dedup  ports.CallbackDedup
	Outbox ports.OutboxWriter
	Router ports.Router
	Clock  ports.Clock
	IDGen  ports.IDGenerator

	// Owner is the address allowed to manage sub-owners; owner and
	// sub-owners share the remaining permissioned surface.
	Owner string
	// MainProcessor is the processor identity on the main domain; it is
	// the only accepted origin for main-domain callbacks.
	MainProcessor string
	Logger        *slog.Logger
}

func (s Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}

func (s Service) requireOwner(caller string) error {
	if strings.TrimSpace(caller) != strings.TrimSpace(s.Owner) || strings.TrimSpace(caller) == "" {
		return domainerrors.ErrUnauthorized
	}
	return nil
}

func (s Service) requireAdmin(ctx context.Context, caller string) error {
	caller = strings.TrimSpace(caller)
	if caller == "" {
		return domainerrors.ErrUnauthorized
	}
	if caller == strings.TrimSpace(s.Owner) {
		return nil
	}
	isSub, err := s.Repo.IsSubOwner(ctx, caller)
	if err != nil {
		return err
	}
	if !isSub {
		return domainerrors.ErrUnauthorized
	}
	return nil
}

// AddSubOwner grants registry administration to an address. Owner only.
func (s Service) AddSubOwner(ctx context.Context, caller string, address string) error {
	if err := s.requireOwner(caller); err != nil {
		return err
	}
	address = strings.TrimSpace(address)
	if address == "" {
		return domainerrors.ErrInvalidInput
	}
	if err := s.Repo.AddSubOwner(ctx, address); err != nil {
		return err
	}
	ResolveLogger(s.Logger).Info("sub-owner added",
		"event", "authz_sub_owner_added",
		"module", "orchestration/authorization-service",
		"layer", "application",
		"address", address,
	)
	return nil
}

// RemoveSubOwner revokes registry administration. Owner only.
func (s Service) RemoveSubOwner(ctx context.Context, caller string, address string) error {
	if err := s.requireOwner(caller); err != nil {
		return err
	}
	return s.Repo.RemoveSubOwner(ctx, strings.TrimSpace(address))
}

// AddExternalDomains registers bridge-reachable domains. Polytone domains
// start in pending_response and trigger a zero-message proxy-creation
// dispatch; the eventual bridge callback settles the proxy state.
func (s Service) AddExternalDomains(ctx context.Context, caller string, inputs []ports.ExternalDomainInput) error {
	if err := s.requireAdmin(ctx, caller); err != nil {
		return err
	}
	now := s.now()
	for _, input := range inputs {
		name := strings.TrimSpace(input.Name)
		if name == "" || strings.TrimSpace(input.ProcessorAddress) == "" || strings.TrimSpace(input.CallbackOrigin) == "" {
			return domainerrors.ErrInvalidInput
		}
		registered, err := s.Repo.DomainNameEverRegistered(ctx, name)
		if err != nil {
			return err
		}
		if registered {
			return domainerrors.ErrDuplicateDomain
		}

		domain := entities.ExternalDomain{
			Name:             name,
			Environment:      input.Environment,
			ProcessorAddress: strings.TrimSpace(input.ProcessorAddress),
			CallbackOrigin:   strings.TrimSpace(input.CallbackOrigin),
			Polytone:         input.Polytone,
			Hyperlane:        input.Hyperlane,
			RegisteredAt:     now,
		}
		switch input.Environment {
		case entities.EnvironmentCosmwasm:
			if input.Polytone == nil || strings.TrimSpace(input.Polytone.NoteAddress) == "" || input.Polytone.TimeoutSeconds <= 0 {
				return domainerrors.ErrInvalidInput
			}
			domain.ProxyState = entities.ProxyStatePendingResponse
		case entities.EnvironmentEvm:
			if input.Hyperlane == nil || strings.TrimSpace(input.Hyperlane.MailboxAddress) == "" {
				return domainerrors.ErrInvalidInput
			}
		default:
			return domainerrors.ErrInvalidInput
		}

		if err := s.Repo.SaveExternalDomain(ctx, domain); err != nil {
			return err
		}
		if err := s.Router.RegisterDomain(ctx, domain); err != nil {
			return err
		}
		ResolveLogger(s.Logger).Info("external domain registered",
			"event", "authz_external_domain_registered",
			"module", "orchestration/authorization-service",
			"layer", "application",
			"domain", name,
			"environment", string(domain.Environment),
		)
	}
	return nil
}

// CreateAuthorizations validates and persists a batch of authorization
// templates; permissioned modes seed their grant sets atomically with the
// definition.
func (s Service) CreateAuthorizations(ctx context.Context, caller string, inputs []ports.AuthorizationInput) error {
	if err := s.requireAdmin(ctx, caller); err != nil {
		return err
	}
	now := s.now()
	for _, input := range inputs {
		label := strings.TrimSpace(input.Label)
		if label == "" {
			return domainerrors.ErrInvalidInput
		}
		if err := validateSubroutine(input.Subroutine); err != nil {
			return err
		}
		target, _ := input.Subroutine.TargetDomain()
		if !target.IsMain() {
			if _, err := s.Repo.GetExternalDomain(ctx, target.Name); err != nil {
				return err
			}
		}

		switch input.Mode {
		case entities.ModePermissionless:
		case entities.ModePermissionedWithoutLimit, entities.ModePermissionedWithLimit:
			if err := validateGrants(input.Grants); err != nil {
				return err
			}
		default:
			return domainerrors.ErrInvalidInput
		}

		maxConcurrent := input.MaxConcurrentExecutions
		if maxConcurrent == 0 {
			maxConcurrent = 1
		}
		authorization := entities.Authorization{
			Label:                   label,
			Mode:                    input.Mode,
			Subroutine:              input.Subroutine,
			Priority:                orchv1.NormalizePriority(input.Priority),
			NotBefore:               input.NotBefore,
			Expiration:              input.Expiration,
			MaxConcurrentExecutions: maxConcurrent,
			State:                   entities.StateEnabled,
			CreatedAt:               now,
			UpdatedAt:               now,
		}
		if err := s.Repo.SaveAuthorization(ctx, authorization); err != nil {
			return err
		}
		if authorization.Permissioned() {
			if err := s.upsertGrants(ctx, label, input.Grants, input.Mode, now); err != nil {
				return err
			}
		}
		ResolveLogger(s.Logger).Info("authorization created",
			"event", "authz_authorization_created",
			"module", "orchestration/authorization-service",
			"layer", "application",
			"label", label,
			"mode", string(input.Mode),
			"domain", target.String(),
		)
	}
	return nil
}

func (s Service) upsertGrants(ctx context.Context, label string, grants []ports.GrantInput, mode entities.AuthorizationMode, now time.Time) error {
	for _, grant := range grants {
		unlimited := grant.Unlimited || mode == entities.ModePermissionedWithoutLimit
		uses := grant.Uses
		if existing, err := s.Repo.GetGrant(ctx, label, grant.Grantee); err == nil {
			// Repeated mints accumulate uses instead of replacing them.
			unlimited = unlimited || existing.Unlimited
			uses += existing.RemainingUses
		}
		if err := s.Repo.UpsertGrant(ctx, entities.MintGrant{
			Label:         label,
			Grantee:       strings.TrimSpace(grant.Grantee),
			Unlimited:     unlimited,
			RemainingUses: uses,
			UpdatedAt:     now,
		}); err != nil {
			return err
		}
	}
	return nil
}

// ModifyAuthorization updates the mutable fields of an authorization.
func (s Service) ModifyAuthorization(ctx context.Context, caller string, label string, input ports.ModifyAuthorizationInput) error {
	if err := s.requireAdmin(ctx, caller); err != nil {
		return err
	}
	authorization, err := s.Repo.GetAuthorization(ctx, strings.TrimSpace(label))
	if err != nil {
		return err
	}
	if input.NotBefore != nil {
		authorization.NotBefore = *input.NotBefore
	}
	if input.Expiration != nil {
		authorization.Expiration = *input.Expiration
	}
	if input.MaxConcurrentExecutions != nil {
		if *input.MaxConcurrentExecutions == 0 {
			return domainerrors.ErrInvalidInput
		}
		authorization.MaxConcurrentExecutions = *input.MaxConcurrentExecutions
	}
	if input.Priority != nil {
		authorization.Priority = orchv1.NormalizePriority(*input.Priority)
	}
	authorization.UpdatedAt = s.now()
	return s.Repo.UpdateAuthorization(ctx, authorization)
}

// DisableAuthorization stops new sends for a label; in-flight batches are
// unaffected.
func (s Service) DisableAuthorization(ctx context.Context, caller string, label string) error {
	return s.setAuthorizationState(ctx, caller, label, entities.StateDisabled)
}

// EnableAuthorization re-opens a label for sends.
func (s Service) EnableAuthorization(ctx context.Context, caller string, label string) error {
	return s.setAuthorizationState(ctx, caller, label, entities.StateEnabled)
}

func (s Service) setAuthorizationState(ctx context.Context, caller string, label string, state entities.AuthorizationState) error {
	if err := s.requireAdmin(ctx, caller); err != nil {
		return err
	}
	authorization, err := s.Repo.GetAuthorization(ctx, strings.TrimSpace(label))
	if err != nil {
		return err
	}
	authorization.State = state
	authorization.UpdatedAt = s.now()
	return s.Repo.UpdateAuthorization(ctx, authorization)
}

// MintAuthorizations adds grantees or uses to a permissioned label.
func (s Service) MintAuthorizations(ctx context.Context, caller string, label string, grants []ports.GrantInput) error {
	if err := s.requireAdmin(ctx, caller); err != nil {
		return err
	}
	authorization, err := s.Repo.GetAuthorization(ctx, strings.TrimSpace(label))
	if err != nil {
		return err
	}
	if !authorization.Permissioned() {
		return domainerrors.ErrNotPermissioned
	}
	if err := validateGrants(grants); err != nil {
		return err
	}
	return s.upsertGrants(ctx, authorization.Label, grants, authorization.Mode, s.now())
}
