package events

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/keepsake-app/keepsake/internal/entities"
)

func setupTestDB(t *testing.T) (*gorm.DB, *Repository, func()) {
	dbPath := "./test_events_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&entities.Source{},
		&entities.User{},
		&entities.Person{},
		&entities.Artifact{},
		&entities.Event{},
	)
	require.NoError(t, err)

	repo := NewRepository(db)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return db, repo, cleanup
}

func createTestPerson(t *testing.T, db *gorm.DB, name string) *entities.Person {
	person := &entities.Person{
		UserID:      1,
		Name:        name,
		IdentityKey: "name:" + name,
	}
	require.NoError(t, db.Create(person).Error)
	return person
}

func createTestArtifact(t *testing.T, db *gorm.DB, title string) *entities.Artifact {
	artifact := &entities.Artifact{
		UserID: 1,
		Type:   entities.ArtifactTypeText,
		Title:  title,
	}
	require.NoError(t, db.Create(artifact).Error)
	return artifact
}

func TestRepository_Create_WithLinks(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	person := createTestPerson(t, db, "alice")
	artifact := createTestArtifact(t, db, "Conversation with Alice")

	event := &entities.Event{
		UserID:    1,
		Title:     "Alice",
		Date:      time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		Notes:     "transcript",
		People:    []entities.Person{{ID: person.ID}},
		Artifacts: []entities.Artifact{{ID: artifact.ID}},
	}
	require.NoError(t, repo.Create(event))
	require.NotZero(t, event.ID)

	loaded, err := repo.GetByID(event.ID)
	require.NoError(t, err)
	require.Len(t, loaded.People, 1)
	assert.Equal(t, person.ID, loaded.People[0].ID)
	require.Len(t, loaded.Artifacts, 1)
	assert.Equal(t, artifact.ID, loaded.Artifacts[0].ID)

	// Linking by primary key must not overwrite the linked rows.
	var unchanged entities.Person
	require.NoError(t, db.First(&unchanged, person.ID).Error)
	assert.Equal(t, "alice", unchanged.Name)
}

func TestRepository_GetByImportedFrom(t *testing.T) {
	_, repo, cleanup := setupTestDB(t)
	defer cleanup()

	require.NoError(t, repo.Create(&entities.Event{
		UserID:       1,
		Title:        "Alice - Jan 1, 2020",
		Date:         time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		ImportedFrom: "messenger:run-1",
	}))
	require.NoError(t, repo.Create(&entities.Event{
		UserID:       1,
		Title:        "Alice - Jan 2, 2020",
		Date:         time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC),
		ImportedFrom: "messenger:run-1",
	}))
	require.NoError(t, repo.Create(&entities.Event{
		UserID:       1,
		Title:        "Bob",
		Date:         time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC),
		ImportedFrom: "sms_backup:run-2",
	}))

	events, err := repo.GetByImportedFrom(1, "messenger:run-1")
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestRepository_GetByDateRange(t *testing.T) {
	_, repo, cleanup := setupTestDB(t)
	defer cleanup()

	for _, day := range []int{1, 15, 28} {
		require.NoError(t, repo.Create(&entities.Event{
			UserID: 1,
			Title:  "entry",
			Date:   time.Date(2020, 2, day, 0, 0, 0, 0, time.UTC),
		}))
	}

	events, err := repo.GetByDateRange(1, "2020-02-10", "2020-02-20")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 15, events[0].Date.Day())
}

func TestRepository_GetAll_OrderedByDate(t *testing.T) {
	_, repo, cleanup := setupTestDB(t)
	defer cleanup()

	require.NoError(t, repo.Create(&entities.Event{
		UserID: 1, Title: "later", Date: time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, repo.Create(&entities.Event{
		UserID: 1, Title: "earlier", Date: time.Date(2019, 6, 1, 0, 0, 0, 0, time.UTC),
	}))

	events, err := repo.GetAll(1)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "earlier", events[0].Title)

	count, err := repo.Count(1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
