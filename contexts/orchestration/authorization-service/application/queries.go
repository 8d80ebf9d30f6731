package application

import (
	"context"
	"strings"

	"maestro/contexts/orchestration/authorization-service/domain/entities"
)

// SubOwners lists the addresses sharing the permissioned surface.
func (s Service) SubOwners(ctx context.Context) ([]string, error) {
	return s.Repo.ListSubOwners(ctx)
}

// Processor returns the main-domain processor identity.
func (s Service) Processor() string {
	return s.MainProcessor
}

// ExternalDomains pages through the registered domains.
func (s Service) ExternalDomains(ctx context.Context, limit int, offset int) ([]entities.ExternalDomain, error) {
	return s.Repo.ListExternalDomains(ctx, normalizeLimit(limit), normalizeOffset(offset))
}

// Authorizations pages through the authorization templates.
func (s Service) Authorizations(ctx context.Context, limit int, offset int) ([]entities.Authorization, error) {
	return s.Repo.ListAuthorizations(ctx, normalizeLimit(limit), normalizeOffset(offset))
}

// Grants lists the grant set of a permissioned label.
func (s Service) Grants(ctx context.Context, label string) ([]entities.MintGrant, error) {
	return s.Repo.ListGrants(ctx, strings.TrimSpace(label))
}

// Execution returns the bookkeeping for one execution id.
func (s Service) Execution(ctx context.Context, executionID uint64) (entities.Execution, error) {
	return s.Repo.GetExecution(ctx, executionID)
}

// Executions pages through execution history, newest first.
func (s Service) Executions(ctx context.Context, limit int, offset int) ([]entities.Execution, error) {
	return s.Repo.ListExecutions(ctx, normalizeLimit(limit), normalizeOffset(offset))
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
