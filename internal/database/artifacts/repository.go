package artifacts

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/keepsake-app/keepsake/internal/entities"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(artifact *entities.Artifact) error {
	if err := r.db.Create(artifact).Error; err != nil {
		return fmt.Errorf("create artifact: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(id uint) (*entities.Artifact, error) {
	var artifact entities.Artifact
	err := r.db.Preload("Source").First(&artifact, id).Error
	if err != nil {
		return nil, err
	}
	return &artifact, nil
}

func (r *Repository) GetAll(userID uint) ([]entities.Artifact, error) {
	var artifacts []entities.Artifact
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&artifacts).Error
	return artifacts, err
}

// GetByImportedFrom returns all artifacts stamped with a provenance tag,
// letting callers inspect or undo a specific import run.
func (r *Repository) GetByImportedFrom(userID uint, provenance string) ([]entities.Artifact, error) {
	var artifacts []entities.Artifact
	err := r.db.Where("user_id = ? AND imported_from = ?", userID, provenance).Find(&artifacts).Error
	return artifacts, err
}

// Search matches the title and transcribed text, newest first.
func (r *Repository) Search(userID uint, query string) ([]entities.Artifact, error) {
	var artifacts []entities.Artifact
	pattern := "%" + query + "%"
	err := r.db.
		Where("user_id = ? AND (title LIKE ? OR transcribed_text LIKE ?)", userID, pattern, pattern).
		Order("created_at DESC").
		Find(&artifacts).Error
	return artifacts, err
}

// Count returns the number of artifacts for a user.
func (r *Repository) Count(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&entities.Artifact{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
