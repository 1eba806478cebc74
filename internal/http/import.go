package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/keepsake-app/keepsake/internal/audit"
	"github.com/keepsake-app/keepsake/internal/importers"
)

// ImportController serves the two-step import protocol. Parse previews an
// export file without touching the store; Import re-submits the same file
// together with the user's selection and commits it.
type ImportController struct {
	Orchestrator *importers.Orchestrator
	AuditService *audit.Service
	Archiver     *audit.Archiver
	MaxFileSize  int64
}

func NewImportController(orchestrator *importers.Orchestrator, auditService *audit.Service, archiver *audit.Archiver, maxFileSize int64) *ImportController {
	return &ImportController{
		Orchestrator: orchestrator,
		AuditService: auditService,
		Archiver:     archiver,
		MaxFileSize:  maxFileSize,
	}
}

// Parse handles POST /api/import/:format/parse.
func (controller *ImportController) Parse(c *gin.Context) {
	format, ok := importers.FormatFromRoute(c.Param("format"))
	if !ok {
		respondNotFound(c, "import format")
		return
	}

	file, ok := controller.exportFile(c)
	if !ok {
		return
	}

	result, err := controller.Orchestrator.Parse(format, file)
	if err != nil {
		controller.respondParseError(c, file, err)
		return
	}
	c.IndentedJSON(http.StatusOK, result)
}

// Import handles POST /api/import/:format/import.
func (controller *ImportController) Import(c *gin.Context) {
	format, ok := importers.FormatFromRoute(c.Param("format"))
	if !ok {
		respondNotFound(c, "import format")
		return
	}

	file, ok := controller.exportFile(c)
	if !ok {
		return
	}

	var opts importers.ImportOptions
	if raw := c.PostForm("options"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &opts); err != nil {
			respondBadRequest(c, "invalid options: "+err.Error())
			return
		}
	}

	result, err := controller.Orchestrator.Import(c.Request.Context(), GetUserID(c), format, file, opts, nil)
	if err != nil {
		controller.respondParseError(c, file, err)
		return
	}

	controller.logImport(c, string(format), result, err)

	// Every selected item failing is a client-visible failure, not a 200.
	if len(opts.Selection) > 0 && result.ItemsProcessed == 0 && len(result.Failures) > 0 {
		c.IndentedJSON(http.StatusUnprocessableEntity, result)
		return
	}
	c.IndentedJSON(http.StatusOK, result)
}

func (controller *ImportController) exportFile(c *gin.Context) (importers.RawExportFile, bool) {
	header, err := c.FormFile("export_file")
	if err != nil {
		respondBadRequest(c, "export_file is required")
		return importers.RawExportFile{}, false
	}

	data, err := readMultipartFile(header, controller.MaxFileSize)
	if err != nil {
		respondError(c, http.StatusRequestEntityTooLarge, err.Error())
		return importers.RawExportFile{}, false
	}

	return importers.RawExportFile{
		Filename: header.Filename,
		Mimetype: header.Header.Get("Content-Type"),
		Origin:   "upload",
		Data:     data,
	}, true
}

// respondParseError maps pipeline errors to status codes and archives
// payloads that failed to parse for later reproduction.
func (controller *ImportController) respondParseError(c *gin.Context, file importers.RawExportFile, err error) {
	switch {
	case errors.Is(err, importers.ErrUnsupportedFormat):
		respondError(c, http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, importers.ErrMalformedInput):
		if controller.Archiver != nil {
			if _, archiveErr := controller.Archiver.SaveRaw(file.Filename, file.Data); archiveErr != nil {
				respondInternalError(c, archiveErr, "archive failed payload")
				return
			}
		}
		respondBadRequest(c, err.Error())
	default:
		respondInternalError(c, err, "import")
	}
}

func (controller *ImportController) logImport(c *gin.Context, source string, result *importers.ImportResult, err error) {
	if controller.AuditService == nil {
		return
	}
	desc := fmt.Sprintf("Imported %d items: %d people, %d artifacts, %d events",
		result.ItemsProcessed, result.PeopleCreated, result.ArtifactsCreated, result.EventsCreated)
	controller.AuditService.LogImport(GetUserID(c), source, desc,
		result.PeopleCreated, result.ArtifactsCreated, result.EventsCreated, len(result.Failures), err)
}
