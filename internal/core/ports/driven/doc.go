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
//   - KnowledgeAPI: The remote knowledge backend (list, add, upload, update, remove, reindex, view)
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - SnapshotStore: Last fetched source list, for offline listing and completion
//   - URLOpener: Opens preview and download links outside the terminal
//   - FolderWatcher: Reports files dropped into a watched folder
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
