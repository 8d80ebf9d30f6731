package http

import (
	orchv1 "maestro/contracts/orchestration/v1"
)

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type GrantDTO struct {
	Grantee   string `json:"grantee"`
	Unlimited bool   `json:"unlimited,omitempty"`
	Uses      uint64 `json:"uses,omitempty"`
}

type AuthorizationSpecDTO struct {
	Label                   string            `json:"label"`
	Mode                    string            `json:"mode"`
	Subroutine              orchv1.Subroutine `json:"subroutine"`
	Priority                string            `json:"priority,omitempty"`
	NotBefore               string            `json:"not_before,omitempty"`
	Expiration              string            `json:"expiration,omitempty"`
	MaxConcurrentExecutions uint64            `json:"max_concurrent_executions,omitempty"`
	Grants                  []GrantDTO        `json:"grants,omitempty"`
}

type CreateAuthorizationsRequest struct {
	Authorizations []AuthorizationSpecDTO `json:"authorizations"`
}

type ModifyAuthorizationRequest struct {
	NotBefore               *string `json:"not_before,omitempty"`
	Expiration              *string `json:"expiration,omitempty"`
	MaxConcurrentExecutions *uint64 `json:"max_concurrent_executions,omitempty"`
	Priority                *string `json:"priority,omitempty"`
}

type MintAuthorizationsRequest struct {
	Grants []GrantDTO `json:"grants"`
}

type AuthorizationDTO struct {
	Label                   string            `json:"label"`
	Mode                    string            `json:"mode"`
	Subroutine              orchv1.Subroutine `json:"subroutine"`
	Priority                string            `json:"priority"`
	NotBefore               string            `json:"not_before,omitempty"`
	Expiration              string            `json:"expiration,omitempty"`
	MaxConcurrentExecutions uint64            `json:"max_concurrent_executions"`
	State                   string            `json:"state"`
	CreatedAt               string            `json:"created_at"`
}

type AuthorizationListResponse struct {
	Status string             `json:"status"`
	Data   []AuthorizationDTO `json:"data"`
}

type GrantListResponse struct {
	Status string     `json:"status"`
	Data   []GrantDTO `json:"data"`
}

type PolytoneConfigDTO struct {
	NoteAddress    string `json:"note_address"`
	VoiceAddress   string `json:"voice_address"`
	TimeoutSeconds uint64 `json:"timeout_seconds"`
}

type HyperlaneConfigDTO struct {
	MailboxAddress string `json:"mailbox_address"`
	DomainID       uint32 `json:"domain_id"`
}

type ExternalDomainSpecDTO struct {
	Name             string              `json:"name"`
	Environment      string              `json:"environment"`
	ProcessorAddress string              `json:"processor_address"`
	CallbackOrigin   string              `json:"callback_origin"`
	Polytone         *PolytoneConfigDTO  `json:"polytone,omitempty"`
	Hyperlane        *HyperlaneConfigDTO `json:"hyperlane,omitempty"`
}

type AddExternalDomainsRequest struct {
	Domains []ExternalDomainSpecDTO `json:"domains"`
}

type ExternalDomainDTO struct {
	Name             string              `json:"name"`
	Environment      string              `json:"environment"`
	ProcessorAddress string              `json:"processor_address"`
	CallbackOrigin   string              `json:"callback_origin"`
	Polytone         *PolytoneConfigDTO  `json:"polytone,omitempty"`
	Hyperlane        *HyperlaneConfigDTO `json:"hyperlane,omitempty"`
	ProxyState       string              `json:"proxy_state"`
	ProxyError       string              `json:"proxy_error,omitempty"`
	RegisteredAt     string              `json:"registered_at"`
}

type ExternalDomainListResponse struct {
	Status string              `json:"status"`
	Data   []ExternalDomainDTO `json:"data"`
}

type SubOwnerRequest struct {
	Address string `json:"address"`
}

type SubOwnerListResponse struct {
	Status string   `json:"status"`
	Data   []string `json:"data"`
}

type ProcessorResponse struct {
	Status string `json:"status"`
	Data   struct {
		Address string `json:"address"`
	} `json:"data"`
}

type SendMsgsRequest struct {
	Messages []orchv1.Message `json:"messages"`
}

type SendMsgsResponse struct {
	Status string `json:"status"`
	Data   struct {
		ExecutionID uint64 `json:"execution_id"`
	} `json:"data"`
}

type ExecutionResultDTO struct {
	Kind          string `json:"kind"`
	Reason        string `json:"reason,omitempty"`
	ExecutedCount int    `json:"executed_count,omitempty"`
}

type ExecutionDTO struct {
	ExecutionID uint64              `json:"execution_id"`
	Label       string              `json:"label"`
	Domain      string              `json:"domain"`
	Initiator   string              `json:"initiator"`
	Status      string              `json:"status"`
	Result      *ExecutionResultDTO `json:"result,omitempty"`
	SubmittedAt string              `json:"submitted_at"`
	FinalizedAt string              `json:"finalized_at,omitempty"`
}

type ExecutionResponse struct {
	Status string       `json:"status"`
	Data   ExecutionDTO `json:"data"`
}

type ExecutionListResponse struct {
	Status string         `json:"status"`
	Data   []ExecutionDTO `json:"data"`
}

type CallbackRequest struct {
	ExecutionID uint64             `json:"execution_id"`
	Result      ExecutionResultDTO `json:"result"`
	DomainName  string             `json:"domain_name,omitempty"`
}

type ProxyCallbackRequest struct {
	DomainName string `json:"domain_name"`
	Outcome    string `json:"outcome"`
	Reason     string `json:"reason,omitempty"`
}

type RemoveMsgsRequest struct {
	DomainName string `json:"domain_name,omitempty"`
	Priority   string `json:"priority"`
	Position   uint64 `json:"position"`
}

type AddMsgsRequest struct {
	ExecutionID uint64 `json:"execution_id"`
	Position    uint64 `json:"position"`
}

type EvictMsgsRequest struct {
	ExecutionID uint64 `json:"execution_id"`
}

type ProcessorControlRequest struct {
	DomainName string `json:"domain_name,omitempty"`
}
