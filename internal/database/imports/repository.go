package imports

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

func (r *Repository) Create(session *entities.ImportSession) error {
	if err := r.db.Create(session).Error; err != nil {
		return fmt.Errorf("create import session: %w", err)
	}
	return nil
}

func (r *Repository) Update(session *entities.ImportSession) error {
	if err := r.db.Save(session).Error; err != nil {
		return fmt.Errorf("update import session: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(userID, id uint) (*entities.ImportSession, error) {
	var session entities.ImportSession
	err := r.db.Preload("Source").Where("user_id = ?", userID).First(&session, id).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// GetRecent returns the latest sessions for a user, newest first.
func (r *Repository) GetRecent(userID uint, limit int) ([]entities.ImportSession, error) {
	if limit <= 0 {
		limit = 20
	}
	var sessions []entities.ImportSession
	err := r.db.
		Preload("Source").
		Where("user_id = ?", userID).
		Order("started_at DESC").
		Limit(limit).
		Find(&sessions).Error
	return sessions, err
}
