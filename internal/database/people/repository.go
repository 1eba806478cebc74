package people

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/keepsake-app/keepsake/internal/entities"
	"github.com/keepsake-app/keepsake/internal/services"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new person. The unique index on (user_id, identity_key)
// is the authoritative guard against duplicate identities; when a concurrent
// import won the race, the surviving row is loaded into person and
// services.ErrAlreadyExists returned so the caller doesn't count a creation.
func (r *Repository) Create(person *entities.Person) error {
	err := r.db.Create(person).Error
	if err == nil {
		return nil
	}
	if person.IdentityKey != "" {
		existing, findErr := r.FindByIdentityKey(person.UserID, person.IdentityKey)
		if findErr == nil && existing != nil {
			*person = *existing
			return services.ErrAlreadyExists
		}
	}
	return fmt.Errorf("create person: %w", err)
}

// FindByIdentityKey looks up a person by the resolver's normalized key.
// Returns (nil, nil) when no match exists.
func (r *Repository) FindByIdentityKey(userID uint, key string) (*entities.Person, error) {
	var person entities.Person
	err := r.db.Where("user_id = ? AND identity_key = ?", userID, key).First(&person).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &person, nil
}

func (r *Repository) GetByID(id uint) (*entities.Person, error) {
	var person entities.Person
	err := r.db.Preload("Source").First(&person, id).Error
	if err != nil {
		return nil, err
	}
	return &person, nil
}

func (r *Repository) GetAll(userID uint) ([]entities.Person, error) {
	var people []entities.Person
	err := r.db.Where("user_id = ?", userID).Order("name ASC").Find(&people).Error
	return people, err
}

// Count returns the number of people for a user.
func (r *Repository) Count(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&entities.Person{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
