package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"maestro/contexts/orchestration/processor-service/ports"
	orchv1 "maestro/contracts/orchestration/v1"
)

var ErrUnknownLibrary = errors.New("no library registered at contract address")

// Library is one in-process stand-in for a deployed library contract.
type Library interface {
	Call(message orchv1.Message) error
}

// snapshotter lets the registry roll a library back after a failed atomic
// run.
type snapshotter interface {
	Snapshot() any
	Restore(state any)
}

// LibraryRegistry implements the executor ports against in-process
// libraries addressed by contract address. ExecuteAll is all-or-nothing:
// a failure restores every snapshot-capable library to its pre-run state.
type LibraryRegistry struct {
	mu        sync.Mutex
	libraries map[string]Library
}

func NewLibraryRegistry() *LibraryRegistry {
	return &LibraryRegistry{libraries: make(map[string]Library)}
}

func (r *LibraryRegistry) Register(address string, library Library) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.libraries[address] = library
}

func (r *LibraryRegistry) Execute(_ context.Context, call ports.FunctionCall) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	library, ok := r.libraries[call.ContractAddress]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownLibrary, call.ContractAddress)
	}
	return library.Call(call.Message)
}

func (r *LibraryRegistry) ExecuteAll(_ context.Context, calls []ports.FunctionCall) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshots := make(map[string]any)
	for address, library := range r.libraries {
		if snap, ok := library.(snapshotter); ok {
			snapshots[address] = snap.Snapshot()
		}
	}

	for i, call := range calls {
		library, ok := r.libraries[call.ContractAddress]
		if !ok {
			r.restore(snapshots)
			return i, fmt.Errorf("%w: %s", ErrUnknownLibrary, call.ContractAddress)
		}
		if err := library.Call(call.Message); err != nil {
			r.restore(snapshots)
			return i, err
		}
	}
	return -1, nil
}

func (r *LibraryRegistry) restore(snapshots map[string]any) {
	for address, state := range snapshots {
		if snap, ok := r.libraries[address].(snapshotter); ok {
			snap.Restore(state)
		}
	}
}

// TokenLedger is a balance-keeping library used to observe atomic
// rollback. Transfers that overdraw an account fail.
type TokenLedger struct {
	balances map[string]int64
}

func NewTokenLedger() *TokenLedger {
	return &TokenLedger{balances: make(map[string]int64)}
}

type transferPayload struct {
	Transfer struct {
		From   string `json:"from"`
		To     string `json:"to"`
		Amount int64  `json:"amount"`
	} `json:"transfer"`
}

func (l *TokenLedger) Call(message orchv1.Message) error {
	var payload transferPayload
	if err := json.Unmarshal(message.Body, &payload); err != nil {
		return fmt.Errorf("token ledger: %w", err)
	}
	transfer := payload.Transfer
	if transfer.Amount <= 0 {
		return errors.New("token ledger: transfer amount must be positive")
	}
	if l.balances[transfer.From] < transfer.Amount {
		return fmt.Errorf("token ledger: insufficient funds in %s", transfer.From)
	}
	l.balances[transfer.From] -= transfer.Amount
	l.balances[transfer.To] += transfer.Amount
	return nil
}

func (l *TokenLedger) SetBalance(account string, amount int64) {
	l.balances[account] = amount
}

func (l *TokenLedger) Balance(account string) int64 {
	return l.balances[account]
}

func (l *TokenLedger) Snapshot() any {
	copied := make(map[string]int64, len(l.balances))
	for account, amount := range l.balances {
		copied[account] = amount
	}
	return copied
}

func (l *TokenLedger) Restore(state any) {
	if balances, ok := state.(map[string]int64); ok {
		l.balances = balances
	}
}

// FlakyLibrary fails its first N calls and succeeds afterwards. It drives
// the retry paths in tests.
type FlakyLibrary struct {
	FailuresLeft int
	Calls        int
}

func (l *FlakyLibrary) Call(_ orchv1.Message) error {
	l.Calls++
	if l.FailuresLeft > 0 {
		l.FailuresLeft--
		return errors.New("scripted failure")
	}
	return nil
}

// RecordingLibrary accepts every call and keeps the payloads it saw.
type RecordingLibrary struct {
	Messages []orchv1.Message
}

func (l *RecordingLibrary) Call(message orchv1.Message) error {
	l.Messages = append(l.Messages, message)
	return nil
}
