/*
Package stages holds the built-in specialist implementations, one per
workflow phase: clarifier, researcher, activity filter, builder, and
refiner. Each is a ports.Stage selected by the orchestrator via a table
lookup from phase. The implementations here are deterministic and
self-contained; a deployment can swap any of them for an LLM-backed
specialist without touching the orchestration core.
*/
package stages
