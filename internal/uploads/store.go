package uploads

import (
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/keepsake-app/keepsake/internal/database/uploads"
	"github.com/keepsake-app/keepsake/internal/entities"
	"github.com/keepsake-app/keepsake/internal/importers"
	"github.com/keepsake-app/keepsake/internal/utils"
)

// Store is the server-side holding area for bulk uploads: blobs on disk,
// metadata rows in the uploaded_files table. Rows carry a TTL; expired
// uploads are removed by the background cleanup task.
type Store struct {
	dir  string
	repo *uploads.Repository
	ttl  time.Duration
}

func NewStore(dir string, repo *uploads.Repository, ttl time.Duration) (*Store, error) {
	for _, sub := range []string{"incoming", "artifacts"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create uploads dir: %w", err)
		}
	}
	return &Store{dir: dir, repo: repo, ttl: ttl}, nil
}

// Save writes the blob and records an UploadedFile row with an expiry.
func (s *Store) Save(userID uint, filename, origin, mimetype string, data []byte) (*entities.UploadedFile, error) {
	id := uuid.NewString()
	storedPath := filepath.Join(s.dir, "incoming", id+"-"+utils.SanitizeFilename(path.Base(filename)))

	if err := os.WriteFile(storedPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("write upload blob: %w", err)
	}

	now := time.Now().UTC()
	file := &entities.UploadedFile{
		ID:             id,
		UserID:         userID,
		Filename:       filename,
		StoredPath:     storedPath,
		Extension:      strings.ToLower(path.Ext(filename)),
		Mimetype:       mimetype,
		DetectedFormat: string(importers.DetectFormat(filename, data)),
		Origin:         origin,
		Size:           int64(len(data)),
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.ttl),
	}
	if err := s.repo.Create(file); err != nil {
		os.Remove(storedPath)
		return nil, err
	}
	return file, nil
}

// Load returns the metadata row and blob contents for an upload id, or
// (nil, nil, nil) when the id is unknown to this user.
func (s *Store) Load(userID uint, id string) (*entities.UploadedFile, []byte, error) {
	file, err := s.repo.GetByID(userID, id)
	if err != nil {
		return nil, nil, err
	}
	if file == nil {
		return nil, nil, nil
	}

	data, err := os.ReadFile(file.StoredPath)
	if err != nil {
		return nil, nil, fmt.Errorf("read upload blob: %w", err)
	}
	return file, data, nil
}

// SaveArtifactBlob copies a file item into permanent artifact storage,
// outside the expiring incoming area.
func (s *Store) SaveArtifactBlob(userID uint, filename string, data []byte) (string, error) {
	name := fmt.Sprintf("%d-%s-%s", userID, uuid.NewString(), utils.SanitizeFilename(path.Base(filename)))
	storedPath := filepath.Join(s.dir, "artifacts", name)
	if err := os.WriteFile(storedPath, data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact blob: %w", err)
	}
	return storedPath, nil
}

// DeleteExpired removes expired upload rows and their blobs. Returns the
// number of uploads removed.
func (s *Store) DeleteExpired(now time.Time) (int64, error) {
	expired, err := s.repo.GetExpired(now)
	if err != nil {
		return 0, fmt.Errorf("list expired uploads: %w", err)
	}

	var deleted int64
	for _, file := range expired {
		if err := os.Remove(file.StoredPath); err != nil && !os.IsNotExist(err) {
			log.Printf("Failed to remove upload blob %s: %v", file.StoredPath, err)
			continue
		}
		if err := s.repo.Delete(file.ID); err != nil {
			log.Printf("Failed to remove upload row %s: %v", file.ID, err)
			continue
		}
		deleted++
	}
	return deleted, nil
}
