package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/keepsake-app/keepsake/internal/database"
	"github.com/keepsake-app/keepsake/internal/database/artifacts"
	auditdb "github.com/keepsake-app/keepsake/internal/database/audit"
	"github.com/keepsake-app/keepsake/internal/database/events"
	"github.com/keepsake-app/keepsake/internal/database/imports"
	"github.com/keepsake-app/keepsake/internal/database/people"
	"github.com/keepsake-app/keepsake/internal/scheduler"
	"github.com/keepsake-app/keepsake/internal/services"
	"github.com/keepsake-app/keepsake/internal/tasks"
	"github.com/keepsake-app/keepsake/internal/uploads"
)

// =============================================================================
// Data Access Layer
// =============================================================================

var _ services.PersonStore = (*people.Repository)(nil)
var _ services.ArtifactStore = (*artifacts.Repository)(nil)
var _ services.EventStore = (*events.Repository)(nil)
var _ services.ImportSessionStore = (*imports.Repository)(nil)
var _ services.SourceCatalog = (*database.Database)(nil)

// =============================================================================
// Upload Storage
// =============================================================================

var _ services.BlobStore = (*uploads.Store)(nil)
var _ services.UploadStore = (*uploads.Store)(nil)

// =============================================================================
// Background Work
// =============================================================================

var _ tasks.ExpiredUploadCleaner = (*uploads.Store)(nil)
var _ tasks.AuditEventCleaner = (*auditdb.Repository)(nil)
var _ scheduler.TaskEnqueuer = (*tasks.Client)(nil)
