// Package domain defines the core entities for knowctl.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Source: A content item registered with the knowledge backend
//   - SourceType: The closed set of content variants (text, file, url)
//   - Draft and Patch: Payloads for creating and editing sources
//   - FileHandle: A local file selected for upload
//   - DownloadTarget: A labelled link offered by the detail view
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
