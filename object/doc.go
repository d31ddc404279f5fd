// Package object implements the in-memory document object model the
// expression engine operates on.
//
// A Document holds named Objects in insertion order. Each Object owns a set
// of typed Properties and a reverse-dependency ("backlink") table recording
// which other objects hold formulas that read from it. A Path names one
// writable property slot, possibly inside a nested list value, on one
// object, and canonicalizes to a unique normal form against a Document.
package object
