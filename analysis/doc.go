// Package analysis computes word-frequency analyses over learner posts,
// scoped by journey, week, mission, or user, with results served through the
// scoped analysis cache.
package analysis
