package http

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keepsake-app/keepsake/internal/audit"
	"github.com/keepsake-app/keepsake/internal/database"
	"github.com/keepsake-app/keepsake/internal/database/artifacts"
	"github.com/keepsake-app/keepsake/internal/database/events"
	"github.com/keepsake-app/keepsake/internal/database/imports"
	"github.com/keepsake-app/keepsake/internal/database/people"
	"github.com/keepsake-app/keepsake/internal/entities"
	"github.com/keepsake-app/keepsake/internal/importers"
)

const testSMSExport = `<smses count="2">
  <sms address="+15551234567" date="1577836800000" type="1" body="happy new year" contact_name="Alice" />
  <sms address="+15551234567" date="1577840400000" type="2" body="you too" contact_name="Alice" />
</smses>`

func setupImportTest(t *testing.T, archiveDir string) (*gin.Engine, *database.Database, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dbPath := "./test_import_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"
	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)

	orchestrator := importers.NewOrchestrator(importers.Stores{
		People:    people.NewRepository(db.DB),
		Artifacts: artifacts.NewRepository(db.DB),
		Events:    events.NewRepository(db.DB),
		Sources:   db,
		Sessions:  imports.NewRepository(db.DB),
	}, 2)

	var archiver *audit.Archiver
	if archiveDir != "" {
		archiver = audit.NewArchiver(archiveDir)
	}
	controller := NewImportController(orchestrator, nil, archiver, 1<<20)

	router := gin.New()
	router.POST("/api/import/:format/parse", controller.Parse)
	router.POST("/api/import/:format/import", controller.Import)

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}
	return router, db, cleanup
}

func multipartExport(t *testing.T, filename string, data []byte, options string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("export_file", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)

	if options != "" {
		require.NoError(t, writer.WriteField("options", options))
	}
	require.NoError(t, writer.Close())
	return &body, writer.FormDataContentType()
}

func TestImportController_Parse(t *testing.T) {
	router, _, cleanup := setupImportTest(t, "")
	defer cleanup()

	body, contentType := multipartExport(t, "sms.xml", []byte(testSMSExport), "")
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/import/sms/parse", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var result importers.ParseResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, importers.FormatSMSBackup, result.Format)
	assert.Equal(t, 1, result.Stats.ConversationCount)
	assert.Equal(t, 2, result.Stats.MessageCount)
	require.Len(t, result.Conversations, 1)
	assert.Equal(t, "sms:5551234567", result.Conversations[0].ID)
}

func TestImportController_Parse_UnknownFormat(t *testing.T) {
	router, _, cleanup := setupImportTest(t, "")
	defer cleanup()

	body, contentType := multipartExport(t, "data.bin", []byte("whatever"), "")
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/import/fax/parse", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestImportController_Parse_MissingFile(t *testing.T) {
	router, _, cleanup := setupImportTest(t, "")
	defer cleanup()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/import/sms/parse", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImportController_Parse_MalformedArchivesPayload(t *testing.T) {
	archiveDir := t.TempDir()
	router, _, cleanup := setupImportTest(t, archiveDir)
	defer cleanup()

	body, contentType := multipartExport(t, "sms.xml", []byte("not xml at all"), "")
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/import/sms/parse", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	// The rejected payload is kept on disk for reproduction.
	entries, err := os.ReadDir(archiveDir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	saved, err := os.ReadFile(filepath.Join(archiveDir, entries[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, "not xml at all", string(saved))
}

func TestImportController_Parse_FileTooLarge(t *testing.T) {
	router, _, cleanup := setupImportTest(t, "")
	defer cleanup()

	big := bytes.Repeat([]byte("x"), (1<<20)+1)
	body, contentType := multipartExport(t, "sms.xml", big, "")
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/import/sms/parse", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestImportController_Import(t *testing.T) {
	router, db, cleanup := setupImportTest(t, "")
	defer cleanup()

	options := `{"create_people": true, "create_artifact": true, "selection": ["sms:5551234567"]}`
	doImport := func() *importers.ImportResult {
		body, contentType := multipartExport(t, "sms.xml", []byte(testSMSExport), options)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/import/sms/import", body)
		req.Header.Set("Content-Type", contentType)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var result importers.ImportResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		return &result
	}

	first := doImport()
	assert.Equal(t, 1, first.ItemsProcessed)
	assert.Equal(t, 1, first.PeopleCreated)
	assert.Equal(t, 1, first.ArtifactsCreated)
	assert.Equal(t, 1, first.EventsCreated)
	assert.NotZero(t, first.SessionID)

	var person entities.Person
	require.NoError(t, db.DB.Where("identity_key = ?", "phone:5551234567").First(&person).Error)
	assert.Equal(t, "Alice", person.Name)

	// Re-importing the same export links the existing person instead of
	// creating a duplicate.
	second := doImport()
	assert.Zero(t, second.PeopleCreated)
	assert.Equal(t, 1, second.ArtifactsCreated)

	var count int64
	require.NoError(t, db.DB.Model(&entities.Person{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestImportController_Import_EmptySelection(t *testing.T) {
	router, db, cleanup := setupImportTest(t, "")
	defer cleanup()

	body, contentType := multipartExport(t, "sms.xml", []byte(testSMSExport), `{"create_people": true}`)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/import/sms/import", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var result importers.ImportResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Zero(t, result.ItemsProcessed)

	var count int64
	require.NoError(t, db.DB.Model(&entities.Person{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestImportController_Import_AllItemsFailed(t *testing.T) {
	router, db, cleanup := setupImportTest(t, "")
	defer cleanup()

	// Events cannot be written, so every selected item fails to commit.
	require.NoError(t, db.DB.Migrator().DropTable(&entities.Event{}))

	options := `{"create_people": true, "selection": ["sms:5551234567"]}`
	body, contentType := multipartExport(t, "sms.xml", []byte(testSMSExport), options)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/import/sms/import", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var result importers.ImportResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Zero(t, result.ItemsProcessed)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "sms:5551234567", result.Failures[0].Item)
}
