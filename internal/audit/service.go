package audit

import (
	"encoding/json"
	"log"

	"github.com/keepsake-app/keepsake/internal/database/audit"
	"github.com/keepsake-app/keepsake/internal/entities"
)

// Service provides high-level audit logging functionality.
type Service struct {
	repo *audit.Repository
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository) *Service {
	return &Service{repo: repo}
}

// Log records a generic audit event.
func (s *Service) Log(event *entities.AuditEvent) error {
	return s.repo.LogEvent(event)
}

// LogAsync records an audit event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.AuditEvent) {
	go func() {
		if err := s.repo.LogEvent(event); err != nil {
			log.Printf("Failed to log audit event: %v", err)
		}
	}()
}

// LogImport records an import run with the counts actually persisted.
func (s *Service) LogImport(userID uint, source, description string, peopleCreated, artifactsCreated, eventsCreated, failed int, err error) {
	event := &entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventImport,
		Action:      source + "_import",
		Description: description,
		EntityType:  "event",
		Status:      entities.AuditStatusSuccess,
	}

	metadata := map[string]any{
		"people_created":    peopleCreated,
		"artifacts_created": artifactsCreated,
		"events_created":    eventsCreated,
		"items_failed":      failed,
	}
	if mdBytes, e := json.Marshal(metadata); e == nil {
		event.Metadata = string(mdBytes)
	}

	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}

	s.LogAsync(event)
}

// LogUpload records a bulk upload.
func (s *Service) LogUpload(userID uint, description string, accepted, failed int, err error) {
	event := &entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventUpload,
		Action:      "bulk_upload",
		Description: description,
		EntityType:  "uploaded_file",
		Status:      entities.AuditStatusSuccess,
	}

	metadata := map[string]any{
		"accepted": accepted,
		"failed":   failed,
	}
	if mdBytes, e := json.Marshal(metadata); e == nil {
		event.Metadata = string(mdBytes)
	}

	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}

	s.LogAsync(event)
}

// LogCleanup records a background cleanup pass.
func (s *Service) LogCleanup(action string, deleted int64) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventCleanup,
		Action:      action,
		Description: "Background cleanup",
		Status:      entities.AuditStatusSuccess,
	}

	metadata := map[string]any{"deleted": deleted}
	if mdBytes, e := json.Marshal(metadata); e == nil {
		event.Metadata = string(mdBytes)
	}

	s.LogAsync(event)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
