package entities

import (
	"time"

	"gorm.io/gorm"
)

type ArtifactType string

const (
	ArtifactTypeText     ArtifactType = "text"
	ArtifactTypePhoto    ArtifactType = "photo"
	ArtifactTypeVideo    ArtifactType = "video"
	ArtifactTypeAudio    ArtifactType = "audio"
	ArtifactTypeDocument ArtifactType = "document"
	ArtifactTypeFile     ArtifactType = "file"
)

type ImportStatus string

const (
	ImportStatusPending         ImportStatus = "pending"
	ImportStatusRunning         ImportStatus = "running"
	ImportStatusCompleted       ImportStatus = "completed"
	ImportStatusPartiallyFailed ImportStatus = "partially_failed"
	ImportStatusFailed          ImportStatus = "failed"
)

type Source struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;size:50" json:"name"`  // e.g., "messenger", "sms_backup", "chatgpt"
	DisplayName string    `gorm:"size:100" json:"display_name"`     // e.g., "Facebook Messenger"
	CreatedAt   time.Time `json:"created_at"`
}

type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Username  string         `gorm:"uniqueIndex;size:100" json:"username"`
	Email     string         `gorm:"uniqueIndex;size:255" json:"email"`
	Token     string         `gorm:"uniqueIndex;size:64" json:"-"` // API token, hidden from JSON
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// Person is a real-world person referenced by events and conversations.
//
// IdentityKey is the normalized key the import resolver dedupes on
// ("phone:5551234567" or "name:alice smith"). It is written once at creation
// and never recomputed from the mutable Name/PhoneNumber fields, so renaming
// a person does not fork their identity on the next import.
type Person struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	UserID      uint   `gorm:"index;uniqueIndex:idx_person_identity" json:"user_id"`
	Name        string `gorm:"index;size:256" json:"name"`
	PhoneNumber string `gorm:"size:32" json:"phone_number,omitempty"`
	Nickname    string `gorm:"size:256" json:"nickname,omitempty"`
	Notes       string `gorm:"type:text" json:"notes,omitempty"`

	// Resolver-owned, hidden from API responses.
	IdentityKey string `gorm:"size:512;uniqueIndex:idx_person_identity" json:"-"`

	SourceID uint   `gorm:"index" json:"source_id"`
	Source   Source `gorm:"foreignKey:SourceID" json:"source,omitempty"`
	User     User   `gorm:"foreignKey:UserID" json:"-"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// Artifact is a durable, searchable record of an imported thing: a full
// conversation transcript, a photo, or an arbitrary file from an archive.
type Artifact struct {
	ID     uint         `gorm:"primaryKey" json:"id"`
	UserID uint         `gorm:"index" json:"user_id"`
	Type   ArtifactType `gorm:"size:20;default:'text'" json:"type"`
	Title  string       `gorm:"index;size:512" json:"title"`

	// SourceSystem names the platform the artifact came from ("messenger",
	// "sms_backup", ...); ImportedFrom is the provenance tag of the import
	// run that created it, in the form "<format>:<run id>".
	SourceSystem    string `gorm:"size:50" json:"source_system"`
	ImportedFrom    string `gorm:"index;size:128" json:"imported_from,omitempty"`
	TranscribedText string `gorm:"type:text" json:"transcribed_text,omitempty"`

	FilePath string `gorm:"size:1024" json:"file_path,omitempty"`
	FileHash string `gorm:"index;size:64" json:"file_hash,omitempty"`
	Mimetype string `gorm:"size:128" json:"mimetype,omitempty"`

	SourceID uint   `gorm:"index" json:"source_id"`
	Source   Source `gorm:"foreignKey:SourceID" json:"source,omitempty"`
	User     User   `gorm:"foreignKey:UserID" json:"-"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// Event is a dated entry in the user's life timeline, linked to the people
// who took part and the artifacts that document it.
type Event struct {
	ID      uint      `gorm:"primaryKey" json:"id"`
	UserID  uint      `gorm:"index" json:"user_id"`
	Title   string    `gorm:"index;size:512" json:"title"`
	Date    time.Time `gorm:"index" json:"date"`
	Summary string    `gorm:"size:1024" json:"summary,omitempty"`
	Notes   string    `gorm:"type:text" json:"notes,omitempty"`

	ImportedFrom string `gorm:"index;size:128" json:"imported_from,omitempty"`

	People    []Person   `gorm:"many2many:event_people;" json:"people,omitempty"`
	Artifacts []Artifact `gorm:"many2many:event_artifacts;" json:"artifacts,omitempty"`
	User      User       `gorm:"foreignKey:UserID" json:"-"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// UploadedFile tracks a file accepted via the bulk upload endpoint, either
// directly or extracted from a ZIP archive. The blob itself lives in the
// uploads directory; rows (and blobs) expire and are cleaned up in the
// background.
type UploadedFile struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"` // UUID
	UserID         uint      `gorm:"index" json:"user_id"`
	Filename       string    `gorm:"size:512" json:"filename"`
	StoredPath     string    `gorm:"size:1024" json:"-"`
	Extension      string    `gorm:"size:16" json:"extension"`
	Mimetype       string    `gorm:"size:128" json:"mimetype,omitempty"`
	DetectedFormat string    `gorm:"size:20" json:"detected_format"`
	Origin         string    `gorm:"size:512" json:"origin"` // "upload" or "zip:<archive name>"
	Size           int64     `json:"size"`
	CreatedAt      time.Time `json:"created_at"`
	ExpiresAt      time.Time `gorm:"index" json:"expires_at"`
}

type ImportSession struct {
	ID               uint         `gorm:"primaryKey" json:"id"`
	UserID           uint         `gorm:"index" json:"user_id"`
	RunID            string       `gorm:"index;size:36" json:"run_id"`
	SourceID         uint         `gorm:"index" json:"source_id"`
	Status           ImportStatus `gorm:"size:20;default:'pending'" json:"status"`
	ItemsTotal       int          `json:"items_total"`
	ItemsProcessed   int          `json:"items_processed"`
	PeopleCreated    int          `json:"people_created"`
	ArtifactsCreated int          `json:"artifacts_created"`
	EventsCreated    int          `json:"events_created"`
	Errors           string       `gorm:"type:text" json:"errors,omitempty"` // JSON array of per-item failures
	StartedAt        time.Time    `json:"started_at"`
	CompletedAt      *time.Time   `json:"completed_at,omitempty"`
	Source           Source       `gorm:"foreignKey:SourceID" json:"source,omitempty"`
}

func (Source) TableName() string {
	return "sources"
}

func (User) TableName() string {
	return "users"
}

func (Person) TableName() string {
	return "people"
}

func (Artifact) TableName() string {
	return "artifacts"
}

func (Event) TableName() string {
	return "events"
}

func (UploadedFile) TableName() string {
	return "uploaded_files"
}

func (ImportSession) TableName() string {
	return "import_sessions"
}
