package uploads

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/keepsake-app/keepsake/internal/entities"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(file *entities.UploadedFile) error {
	if err := r.db.Create(file).Error; err != nil {
		return fmt.Errorf("create uploaded file: %w", err)
	}
	return nil
}

// GetByID returns (nil, nil) for unknown or foreign ids so callers can treat
// both as "not found".
func (r *Repository) GetByID(userID uint, id string) (*entities.UploadedFile, error) {
	var file entities.UploadedFile
	err := r.db.Where("user_id = ? AND id = ?", userID, id).First(&file).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &file, nil
}

func (r *Repository) GetAll(userID uint) ([]entities.UploadedFile, error) {
	var files []entities.UploadedFile
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&files).Error
	return files, err
}

// GetExpired returns uploads whose TTL elapsed before now.
func (r *Repository) GetExpired(now time.Time) ([]entities.UploadedFile, error) {
	var files []entities.UploadedFile
	err := r.db.Where("expires_at < ?", now).Find(&files).Error
	return files, err
}

func (r *Repository) Delete(id string) error {
	return r.db.Delete(&entities.UploadedFile{}, "id = ?", id).Error
}
