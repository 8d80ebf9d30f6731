package v1

// ExecutionResultKind enumerates the terminal outcomes of a batch.
type ExecutionResultKind string

const (
	ResultSuccess           ExecutionResultKind = "success"
	ResultRejected          ExecutionResultKind = "rejected"
	ResultPartiallyExecuted ExecutionResultKind = "partially_executed"
	ResultExpired           ExecutionResultKind = "expired"
)

// ExecutionResult is the terminal outcome reported exactly once per
// execution id.
type ExecutionResult struct {
	Kind          ExecutionResultKind `json:"kind"`
	Reason        string              `json:"reason,omitempty"`
	ExecutedCount int                 `json:"executed_count,omitempty"`
}

func SuccessResult() ExecutionResult {
	return ExecutionResult{Kind: ResultSuccess}
}

func RejectedResult(reason string) ExecutionResult {
	return ExecutionResult{Kind: ResultRejected, Reason: reason}
}

func PartiallyExecutedResult(executed int, reason string) ExecutionResult {
	return ExecutionResult{Kind: ResultPartiallyExecuted, ExecutedCount: executed, Reason: reason}
}

func ExpiredResult(executed int) ExecutionResult {
	return ExecutionResult{Kind: ResultExpired, ExecutedCount: executed}
}

// ExecutionCallback reports a terminal outcome back to the authorization
// registry, directly on the main domain or bridge-relayed from external
// processors.
type ExecutionCallback struct {
	ExecutionID uint64          `json:"execution_id"`
	Result      ExecutionResult `json:"result"`
	DomainName  string          `json:"domain_name,omitempty"`
}

// ProxyOutcome is the terminal state of a remote proxy-account creation.
type ProxyOutcome string

const (
	ProxyCreated         ProxyOutcome = "created"
	ProxyTimedOut        ProxyOutcome = "timed_out"
	ProxyUnexpectedError ProxyOutcome = "unexpected_error"
)

// ProxyCallback reports the result of the lazy per-domain proxy creation
// issued when an external CosmWasm domain is registered.
type ProxyCallback struct {
	DomainName string       `json:"domain_name"`
	Outcome    ProxyOutcome `json:"outcome"`
	Reason     string       `json:"reason,omitempty"`
}
