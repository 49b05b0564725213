/*
Package ports defines the driven ports (interfaces) for the roamkit engine.

These interfaces decouple the orchestration core from external
implementations, allowing it to work with various storage backends,
specialist stages and identity providers.

# Key Interfaces

  - StateStore: persisting TripState and session ownership records.
  - Stage: one unit of specialist trip-planning reasoning, selected by phase.
  - TokenVerifier: mapping a bearer token to a user identity.
  - Emitter: the ordered per-turn event sink.
*/
package ports
