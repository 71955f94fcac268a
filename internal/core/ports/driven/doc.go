// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - DocumentExtractor: Turns uploaded bytes into page texts
//   - DocumentStore: Document/page/passage persistence
//   - SessionStore: Conversation persistence and the pending-turn guard
//   - PassageIndex: Similarity search over passage embeddings
//   - EmbeddingService: Generates vector embeddings
//   - Generator: Produces the answer token stream
//
// TokenSink is implemented by the caller of a query (HTTP response,
// terminal) and passed in per request rather than injected at startup.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
