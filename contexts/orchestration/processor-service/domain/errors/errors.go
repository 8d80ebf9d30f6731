package errors

import "errors"

var (
	ErrUnauthorizedCaller      = errors.New("caller is not the authorization contract")
	ErrEmptyQueue              = errors.New("queue is empty")
	ErrPositionOutOfRange      = errors.New("queue position is out of range")
	ErrBatchStarted            = errors.New("batch already started non-atomic execution")
	ErrUnknownExecution        = errors.New("execution id is not queued")
	ErrNotAwaitingConfirmation = errors.New("execution is not awaiting a confirmation")
	ErrInvalidBatch            = errors.New("batch is malformed")
)
