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

type ConfigResponse struct {
	Status string `json:"status"`
	Data   struct {
		AuthorizationContract string `json:"authorization_contract"`
		Domain                string `json:"domain"`
		State                 string `json:"state"`
	} `json:"data"`
}

type QueuedBatchDTO struct {
	ExecutionID          uint64           `json:"execution_id"`
	Priority             string           `json:"priority"`
	Messages             []orchv1.Message `json:"messages"`
	NextFunction         int              `json:"next_function"`
	ExecutedCount        int              `json:"executed_count"`
	AwaitingConfirmation bool             `json:"awaiting_confirmation"`
	ExpiresAt            string           `json:"expires_at,omitempty"`
	EnqueuedAt           string           `json:"enqueued_at"`
}

type QueueResponse struct {
	Status string           `json:"status"`
	Data   []QueuedBatchDTO `json:"data"`
}

type ConfirmFunctionRequest struct {
	ExecutionID uint64 `json:"execution_id"`
}

type RetryStatusResponse struct {
	Status string `json:"status"`
	Data   struct {
		ExecutionID   uint64 `json:"execution_id"`
		Consumed      uint64 `json:"consumed"`
		CooldownUntil string `json:"cooldown_until,omitempty"`
		Blocked       bool   `json:"blocked"`
	} `json:"data"`
}
