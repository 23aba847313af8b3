// Package cache implements the scoped analysis cache: deterministic scope
// fingerprints, a two-tier store (in-process memory over Redis), and a
// get-or-compute orchestrator with single-flight de-duplication, per-waiter
// timeouts, stale-on-error fallback, and epoch-checked writes so a slow
// computation can never resurrect an invalidated value.
package cache
