package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/keepsake-app/keepsake/internal/audit"
	"github.com/keepsake-app/keepsake/internal/importers"
	"github.com/keepsake-app/keepsake/internal/uploads"
)

// UploadsController serves the bulk path: stage many files at once, then
// import a selection of them in a single run. ZIP archives are expanded
// server-side at upload time, one staged file per usable entry.
type UploadsController struct {
	Store        *uploads.Store
	Orchestrator *importers.Orchestrator
	AuditService *audit.Service
	MaxFileSize  int64
}

func NewUploadsController(store *uploads.Store, orchestrator *importers.Orchestrator, auditService *audit.Service, maxFileSize int64) *UploadsController {
	return &UploadsController{
		Store:        store,
		Orchestrator: orchestrator,
		AuditService: auditService,
		MaxFileSize:  maxFileSize,
	}
}

// UploadedFileInfo describes one staged file in the bulk upload response.
type UploadedFileInfo struct {
	ID             string `json:"id"`
	Filename       string `json:"filename"`
	DetectedFormat string `json:"detected_format"`
	Origin         string `json:"origin,omitempty"`
	Size           int64  `json:"size"`
}

// UploadFailure describes one file that could not be staged.
type UploadFailure struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// BulkUploadResponse reports what was staged and what was rejected.
type BulkUploadResponse struct {
	Success     []UploadedFileInfo `json:"success"`
	Failed      []UploadFailure    `json:"failed"`
	Total       int                `json:"total"`
	FailedCount int                `json:"failed_count"`
}

// BulkUpload handles POST /api/uploads/bulk.
func (controller *UploadsController) BulkUpload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		respondBadRequest(c, "multipart form is required")
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		respondBadRequest(c, "at least one file is required")
		return
	}

	userID := GetUserID(c)
	response := BulkUploadResponse{
		Success: []UploadedFileInfo{},
		Failed:  []UploadFailure{},
	}

	for _, header := range headers {
		data, err := readMultipartFile(header, controller.MaxFileSize)
		if err != nil {
			response.Failed = append(response.Failed, UploadFailure{Filename: header.Filename, Reason: err.Error()})
			continue
		}

		mimetype := header.Header.Get("Content-Type")
		if importers.IsArchive(header.Filename, data) {
			controller.stageArchive(userID, header.Filename, data, &response)
			continue
		}
		controller.stageFile(userID, header.Filename, "upload", mimetype, data, &response)
	}

	response.Total = len(response.Success) + len(response.Failed)
	response.FailedCount = len(response.Failed)

	if controller.AuditService != nil {
		desc := fmt.Sprintf("Staged %d files (%d failed)", len(response.Success), response.FailedCount)
		var auditErr error
		if len(response.Success) == 0 && response.FailedCount > 0 {
			auditErr = fmt.Errorf("all %d files failed", response.FailedCount)
		}
		controller.AuditService.LogUpload(userID, desc, len(response.Success), response.FailedCount, auditErr)
	}

	status := http.StatusOK
	if len(response.Success) == 0 && response.FailedCount > 0 {
		status = http.StatusUnprocessableEntity
	}
	c.IndentedJSON(status, response)
}

func (controller *UploadsController) stageArchive(userID uint, archiveName string, data []byte, response *BulkUploadResponse) {
	entries, failures, err := importers.ExtractArchive(data, archiveName)
	if err != nil {
		response.Failed = append(response.Failed, UploadFailure{Filename: archiveName, Reason: err.Error()})
		return
	}
	for _, failure := range failures {
		response.Failed = append(response.Failed, UploadFailure{Filename: failure.Item, Reason: failure.Reason})
	}
	for _, entry := range entries {
		controller.stageFile(userID, entry.Filename, entry.Origin, entry.Mimetype, entry.Data, response)
	}
}

func (controller *UploadsController) stageFile(userID uint, filename, origin, mimetype string, data []byte, response *BulkUploadResponse) {
	file, err := controller.Store.Save(userID, filename, origin, mimetype, data)
	if err != nil {
		response.Failed = append(response.Failed, UploadFailure{Filename: filename, Reason: err.Error()})
		return
	}
	response.Success = append(response.Success, UploadedFileInfo{
		ID:             file.ID,
		Filename:       file.Filename,
		DetectedFormat: file.DetectedFormat,
		Origin:         file.Origin,
		Size:           file.Size,
	})
}

// BulkImportRequest selects staged uploads for a commit run.
type BulkImportRequest struct {
	Options importers.ImportOptions `json:"options"`
}

// Import handles POST /api/uploads/import. Selection ids are upload ids from
// a previous BulkUpload call.
func (controller *UploadsController) Import(c *gin.Context) {
	var req BulkImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	userID := GetUserID(c)
	var selected []importers.SelectedFile
	for _, id := range req.Options.Selection {
		file, data, err := controller.Store.Load(userID, id)
		if err != nil {
			respondInternalError(c, err, "load upload")
			return
		}
		if file == nil {
			respondNotFound(c, "upload "+id)
			return
		}
		selected = append(selected, importers.SelectedFile{
			ID: file.ID,
			File: importers.RawExportFile{
				Filename: file.Filename,
				Mimetype: file.Mimetype,
				Origin:   file.Origin,
				Data:     data,
			},
		})
	}

	result, err := controller.Orchestrator.ImportFiles(c.Request.Context(), userID, selected, req.Options, nil)
	if err != nil {
		respondInternalError(c, err, "bulk import")
		return
	}

	if controller.AuditService != nil {
		desc := fmt.Sprintf("Imported %d of %d staged files", result.ItemsProcessed, len(selected))
		controller.AuditService.LogImport(userID, "zip", desc,
			result.PeopleCreated, result.ArtifactsCreated, result.EventsCreated, len(result.Failures), nil)
	}

	if len(selected) > 0 && result.ItemsProcessed == 0 && len(result.Failures) > 0 {
		c.IndentedJSON(http.StatusUnprocessableEntity, result)
		return
	}
	c.IndentedJSON(http.StatusOK, result)
}
