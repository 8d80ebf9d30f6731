// Package processorservice implements the per-domain execution engine
// inside the orchestration context.
//
// The module owns the two FIFO priority lanes, atomic and non-atomic
// batch execution with per-function retry and cooldown, expiration
// handling, and terminal callback emission. Progress happens exclusively
// through permissionless Tick calls; control messages are accepted from
// the owning authorization contract only.
package processorservice
