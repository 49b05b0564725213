// Package domain defines the core trip-planning types shared across the
// engine: the per-session TripState, the workflow phases, the streamed
// event union, and the error taxonomy. It has no dependencies on adapters
// or transport.
package domain
