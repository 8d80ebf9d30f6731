// Package routingservice implements the domain router and bridge
// adapters inside the orchestration context.
//
// The module owns the route table, the pure routing core that maps
// control messages onto direct, Polytone or Hyperlane dispatches, bus
// publication of bridge envelopes, and the workers that materialize
// proxies, execute bridged messages and relay callbacks back to the main
// domain.
package routingservice
