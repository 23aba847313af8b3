// Package squeeze implements the authentication front of the Squeeze
// analysis backend: credential resolution across the transport encodings
// Supabase clients actually send, claims decoding with independently
// toggleable verification, and a role-hierarchy authorization gate.
//
// The cached analysis pipeline guarded by this package lives in the cache
// and analysis subpackages.
package squeeze
