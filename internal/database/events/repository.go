package events

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

// Create inserts an event and its person/artifact links. Linked rows are
// referenced by primary key only; Omit keeps GORM from upserting the people
// and artifacts themselves while still writing the join rows.
func (r *Repository) Create(event *entities.Event) error {
	err := r.db.Omit("People.*", "Artifacts.*").Create(event).Error
	if err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(id uint) (*entities.Event, error) {
	var event entities.Event
	err := r.db.Preload("People").Preload("Artifacts").First(&event, id).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *Repository) GetAll(userID uint) ([]entities.Event, error) {
	var events []entities.Event
	err := r.db.Where("user_id = ?", userID).Order("date ASC").Find(&events).Error
	return events, err
}

// GetByDateRange returns events within [from, to], oldest first.
func (r *Repository) GetByDateRange(userID uint, from, to string) ([]entities.Event, error) {
	var events []entities.Event
	err := r.db.
		Where("user_id = ? AND date >= ? AND date <= ?", userID, from, to).
		Order("date ASC").
		Find(&events).Error
	return events, err
}

// GetByImportedFrom returns all events stamped with a provenance tag.
func (r *Repository) GetByImportedFrom(userID uint, provenance string) ([]entities.Event, error) {
	var events []entities.Event
	err := r.db.Where("user_id = ? AND imported_from = ?", userID, provenance).Find(&events).Error
	return events, err
}

// Count returns the number of events for a user.
func (r *Repository) Count(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&entities.Event{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
