// Package loop implements the single-threaded cooperative reactor that
// every go-asyncipc notifier is driven by: timers, idle hooks, signal
// multiplexing, FD readiness, child reaping, and unique-id minting.
//
// A Loop must be driven from exactly one goroutine at a time (via Run or
// RunAsync); nothing in this package synchronizes concurrent access to
// loop state beyond what's needed to accept asynchronous OS notifications
// (signals, child exits) safely onto that single goroutine.
package loop
