// Package services implements the driving ports: the ingestion
// pipeline, the chat orchestrator and session management. Services
// contain the application logic and reach storage, indexing and AI
// providers only through driven port interfaces.
package services
