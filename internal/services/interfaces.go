package services

import (
	"errors"

	"github.com/keepsake-app/keepsake/internal/entities"
)

// ErrAlreadyExists is returned by Create when a uniqueness constraint kept a
// row from being inserted; the passed entity is filled with the surviving
// row. Callers that tally "created" counts must not count these.
var ErrAlreadyExists = errors.New("already exists")

// PersonStore persists people. FindByIdentityKey is the cross-run dedup
// backstop: the database's unique index on (user_id, identity_key) is
// authoritative even if two imports race.
type PersonStore interface {
	Create(person *entities.Person) error
	FindByIdentityKey(userID uint, key string) (*entities.Person, error)
}

// ArtifactStore persists artifacts.
type ArtifactStore interface {
	Create(artifact *entities.Artifact) error
}

// EventStore persists events together with their person/artifact links.
type EventStore interface {
	Create(event *entities.Event) error
}

// SourceCatalog resolves seeded source names to rows.
type SourceCatalog interface {
	GetSourceByName(name string) (*entities.Source, error)
}

// ImportSessionStore records import progress for polling and history.
type ImportSessionStore interface {
	Create(session *entities.ImportSession) error
	Update(session *entities.ImportSession) error
}

// BlobStore persists raw file bytes for artifacts and returns the stored
// path.
type BlobStore interface {
	SaveArtifactBlob(userID uint, filename string, data []byte) (string, error)
}

// UploadStore is the server-side holding area for bulk uploads.
type UploadStore interface {
	Save(userID uint, filename, origin, mimetype string, data []byte) (*entities.UploadedFile, error)
	Load(userID uint, id string) (*entities.UploadedFile, []byte, error)
}
