// Package interfaces documents the core abstractions used throughout the application.
//
// This package consolidates interface documentation to help contributors
// understand extension points and how to implement new functionality.
//
// # Interface Categories
//
// The application uses several categories of interfaces:
//
// ## Data Access Interfaces
//
//   - PersonStore: Person creation and identity-key lookup (internal/services/interfaces.go)
//   - ArtifactStore: Artifact persistence (internal/services/interfaces.go)
//   - EventStore: Event persistence with person/artifact links (internal/services/interfaces.go)
//   - SourceCatalog: Seeded source lookup (internal/services/interfaces.go)
//   - ImportSessionStore: Import run progress rows (internal/services/interfaces.go)
//   - UploadStore/BlobStore: Staged uploads and artifact blobs (internal/services/interfaces.go)
//
// ## Import Pipeline Interfaces
//
//   - Parser: One per source format (internal/importers/parser.go). Implement
//     it and extend ParserFor to add a new export format.
//
// ## Background Work Interfaces
//
//   - AuditEventCleaner, ExpiredUploadCleaner: retention tasks (internal/tasks)
//   - TaskEnqueuer: scheduler-to-queue seam (internal/scheduler)
//
// # Compile-Time Checks
//
// checks.go pins every repository to the service interface it implements, so
// a missing method fails the build rather than a request.
package interfaces
