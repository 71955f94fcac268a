// Package domain defines the core business entities for docuchat.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document / Page / Passage: the ingested, retrievable text model
//   - Session / Turn: conversational state
//   - ScoredPassage: a transient retrieval hit
//   - StreamEvent: the query-boundary streaming unit
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
