package http

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keepsake-app/keepsake/internal/database"
	"github.com/keepsake-app/keepsake/internal/database/artifacts"
	"github.com/keepsake-app/keepsake/internal/database/events"
	"github.com/keepsake-app/keepsake/internal/database/imports"
	"github.com/keepsake-app/keepsake/internal/database/people"
	uploadsdb "github.com/keepsake-app/keepsake/internal/database/uploads"
	"github.com/keepsake-app/keepsake/internal/entities"
	"github.com/keepsake-app/keepsake/internal/importers"
	"github.com/keepsake-app/keepsake/internal/uploads"
)

func setupUploadsTest(t *testing.T) (*gin.Engine, *database.Database, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dbPath := "./test_uploads_api_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"
	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)

	store, err := uploads.NewStore(t.TempDir(), uploadsdb.NewRepository(db.DB), time.Hour)
	require.NoError(t, err)

	orchestrator := importers.NewOrchestrator(importers.Stores{
		People:    people.NewRepository(db.DB),
		Artifacts: artifacts.NewRepository(db.DB),
		Events:    events.NewRepository(db.DB),
		Sources:   db,
		Sessions:  imports.NewRepository(db.DB),
		Blobs:     store,
	}, 2)

	controller := NewUploadsController(store, orchestrator, nil, 1<<20)

	router := gin.New()
	router.POST("/api/uploads/bulk", controller.BulkUpload)
	router.POST("/api/uploads/import", controller.Import)

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}
	return router, db, cleanup
}

func buildTestArchive(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, contents := range entries {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(contents))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func multipartFiles(t *testing.T, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for name, data := range files {
		part, err := writer.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return &body, writer.FormDataContentType()
}

func bulkUpload(t *testing.T, router *gin.Engine, files map[string][]byte) (int, BulkUploadResponse) {
	t.Helper()
	body, contentType := multipartFiles(t, files)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/uploads/bulk", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	var response BulkUploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return w.Code, response
}

func TestUploadsController_BulkUpload(t *testing.T) {
	router, _, cleanup := setupUploadsTest(t)
	defer cleanup()

	code, response := bulkUpload(t, router, map[string][]byte{
		"sms.xml":   []byte(testSMSExport),
		"notes.txt": []byte("dear diary"),
	})

	require.Equal(t, http.StatusOK, code)
	assert.Len(t, response.Success, 2)
	assert.Empty(t, response.Failed)
	assert.Equal(t, 2, response.Total)

	formats := map[string]string{}
	for _, f := range response.Success {
		formats[f.Filename] = f.DetectedFormat
	}
	assert.Equal(t, "sms_backup", formats["sms.xml"])
	assert.Equal(t, "file", formats["notes.txt"])
}

func TestUploadsController_BulkUpload_ExpandsArchive(t *testing.T) {
	router, _, cleanup := setupUploadsTest(t)
	defer cleanup()

	archive := buildTestArchive(t, map[string]string{
		"backup/sms.xml":   testSMSExport,
		"photos/IMG_1.jpg": "jpeg bytes",
		"__MACOSX/._junk":  "resource fork",
	})

	code, response := bulkUpload(t, router, map[string][]byte{"takeout.zip": archive})

	require.Equal(t, http.StatusOK, code)
	require.Len(t, response.Success, 2, "one staged file per usable entry")
	for _, f := range response.Success {
		assert.Equal(t, "zip:takeout.zip", f.Origin)
	}
}

func TestUploadsController_BulkUpload_NoFiles(t *testing.T) {
	router, _, cleanup := setupUploadsTest(t)
	defer cleanup()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/uploads/bulk", strings.NewReader(""))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadsController_Import(t *testing.T) {
	router, db, cleanup := setupUploadsTest(t)
	defer cleanup()

	_, staged := bulkUpload(t, router, map[string][]byte{
		"sms.xml":   []byte(testSMSExport),
		"notes.txt": []byte("dear diary"),
	})
	require.Len(t, staged.Success, 2)

	var ids []string
	for _, f := range staged.Success {
		ids = append(ids, f.ID)
	}

	request := BulkImportRequest{
		Options: importers.ImportOptions{
			CreatePeople:   true,
			CreateArtifact: true,
			Selection:      ids,
		},
	}
	payload, err := json.Marshal(request)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/uploads/import", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var result importers.ImportResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 2, result.ItemsProcessed)
	assert.Equal(t, 1, result.PeopleCreated)
	assert.Equal(t, 2, result.ArtifactsCreated, "transcript plus the staged text file")
	assert.Empty(t, result.Failures)

	// The generic file's blob was copied into permanent artifact storage.
	var artifact entities.Artifact
	require.NoError(t, db.DB.Where("title = ?", "notes.txt").First(&artifact).Error)
	assert.NotEmpty(t, artifact.FilePath)
	contents, err := os.ReadFile(artifact.FilePath)
	require.NoError(t, err)
	assert.Equal(t, "dear diary", string(contents))
}

func TestUploadsController_Import_UnknownUpload(t *testing.T) {
	router, _, cleanup := setupUploadsTest(t)
	defer cleanup()

	payload := `{"options": {"selection": ["b2c7e6d0-0000-0000-0000-000000000000"]}}`
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/uploads/import", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
