package application

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	domainerrors "maestro/contexts/orchestration/authorization-service/domain/errors"
	"maestro/contexts/orchestration/authorization-service/ports"
	orchv1 "maestro/contracts/orchestration/v1"
)

// validateSubroutine enforces the structural invariants an authorization
// must hold at creation time: at least one function, a consistent tagged
// union, well-formed restrictions and a single target domain.
func validateSubroutine(sub orchv1.Subroutine) error {
	switch sub.Kind {
	case orchv1.SubroutineAtomic:
		if sub.Atomic == nil || sub.NonAtomic != nil {
			return domainerrors.ErrInvalidInput
		}
	case orchv1.SubroutineNonAtomic:
		if sub.NonAtomic == nil || sub.Atomic != nil {
			return domainerrors.ErrInvalidInput
		}
	default:
		return domainerrors.ErrInvalidInput
	}
	count := sub.FunctionCount()
	if count == 0 {
		return domainerrors.ErrEmptySubroutine
	}

	target, _ := sub.TargetDomain()
	for i := 0; i < count; i++ {
		slot, _ := sub.FunctionAt(i)
		if strings.TrimSpace(slot.ContractAddress) == "" {
			return domainerrors.ErrInvalidInput
		}
		// Mixed-domain subroutines are rejected outright: the batch target
		// is derived from the first function, so every function must agree.
		if !slot.Domain.Equal(target) {
			return domainerrors.ErrMixedDomainSubroutine
		}
		if err := validateMessageDetails(slot.MessageDetails); err != nil {
			return err
		}
		if slot.Retry != nil {
			if err := validateRetryLogic(*slot.Retry); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateMessageDetails(details orchv1.MessageDetails) error {
	switch details.Type {
	case orchv1.MessageTypeExecute, orchv1.MessageTypeMigrate:
	default:
		return domainerrors.ErrInvalidInput
	}
	for _, restriction := range details.ParamRestrictions {
		if len(restriction.Keys) == 0 {
			return domainerrors.ErrInvalidInput
		}
		switch restriction.Kind {
		case orchv1.ParamMustBeIncluded, orchv1.ParamCannotBeIncluded:
		case orchv1.ParamMustBeValue:
			if len(restriction.Value) == 0 {
				return domainerrors.ErrInvalidInput
			}
		default:
			return domainerrors.ErrInvalidInput
		}
	}
	return nil
}

func validateRetryLogic(retry orchv1.RetryLogic) error {
	switch retry.Times {
	case orchv1.RetryNoRetry:
		return nil
	case orchv1.RetryIndefinitely, orchv1.RetryAmount:
		if retry.Times == orchv1.RetryAmount && retry.Amount == 0 {
			return domainerrors.ErrInvalidInput
		}
		if retry.IntervalSeconds < 0 {
			return domainerrors.ErrInvalidInput
		}
		return nil
	default:
		return domainerrors.ErrInvalidInput
	}
}

// validateMessages checks submitted messages against the subroutine's
// message details: one message per function, matching type, and every
// structural param restriction satisfied. Business content is never
// interpreted.
func validateMessages(sub orchv1.Subroutine, messages []orchv1.Message) error {
	if len(messages) != sub.FunctionCount() {
		return domainerrors.ErrMessageCount
	}
	for i, msg := range messages {
		slot, _ := sub.FunctionAt(i)
		if msg.Type != slot.MessageDetails.Type {
			return fmt.Errorf("%w: message %d has type %s, function expects %s",
				domainerrors.ErrMessageShape, i, msg.Type, slot.MessageDetails.Type)
		}
		if msg.Type == orchv1.MessageTypeMigrate && msg.CodeID == 0 {
			return fmt.Errorf("%w: message %d is a migrate without code id",
				domainerrors.ErrMessageShape, i)
		}
		for _, restriction := range slot.MessageDetails.ParamRestrictions {
			if err := checkParamRestriction(msg.Body, restriction); err != nil {
				return fmt.Errorf("%w: message %d: %v", domainerrors.ErrMessageShape, i, err)
			}
		}
	}
	return nil
}

func checkParamRestriction(body json.RawMessage, restriction orchv1.ParamRestriction) error {
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return fmt.Errorf("body is not a json object: %v", err)
	}

	value, found := lookupPath(decoded, restriction.Keys)
	path := strings.Join(restriction.Keys, ".")

	switch restriction.Kind {
	case orchv1.ParamMustBeIncluded:
		if !found {
			return fmt.Errorf("required param %q is missing", path)
		}
	case orchv1.ParamCannotBeIncluded:
		if found {
			return fmt.Errorf("forbidden param %q is present", path)
		}
	case orchv1.ParamMustBeValue:
		if !found {
			return fmt.Errorf("required param %q is missing", path)
		}
		var expected any
		if err := json.Unmarshal(restriction.Value, &expected); err != nil {
			return fmt.Errorf("restriction value for %q is not valid json: %v", path, err)
		}
		if !reflect.DeepEqual(value, expected) {
			return fmt.Errorf("param %q does not match the required value", path)
		}
	}
	return nil
}

// lookupPath walks nested json objects along keys.
func lookupPath(decoded map[string]any, keys []string) (any, bool) {
	current := any(decoded)
	for _, key := range keys {
		object, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		next, present := object[key]
		if !present {
			return nil, false
		}
		current = next
	}
	return current, true
}

// validateGrants checks the seed grant set for a permissioned mode.
func validateGrants(grants []ports.GrantInput) error {
	if len(grants) == 0 {
		return domainerrors.ErrInvalidInput
	}
	for _, grant := range grants {
		if strings.TrimSpace(grant.Grantee) == "" {
			return domainerrors.ErrInvalidInput
		}
		if !grant.Unlimited && grant.Uses == 0 {
			return domainerrors.ErrInvalidInput
		}
	}
	return nil
}
