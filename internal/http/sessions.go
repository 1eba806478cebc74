package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/keepsake-app/keepsake/internal/database/imports"
)

// SessionsController exposes import run progress and history.
type SessionsController struct {
	Sessions *imports.Repository
}

func NewSessionsController(sessions *imports.Repository) *SessionsController {
	return &SessionsController{Sessions: sessions}
}

// GetSession handles GET /api/import/sessions/:id.
func (controller *SessionsController) GetSession(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	session, err := controller.Sessions.GetByID(GetUserID(c), id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondNotFound(c, "import session")
		return
	}
	if err != nil {
		respondInternalError(c, err, "get import session")
		return
	}
	c.IndentedJSON(http.StatusOK, session)
}

// ListSessions handles GET /api/import/sessions.
func (controller *SessionsController) ListSessions(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondBadRequest(c, "invalid limit")
			return
		}
		limit = parsed
	}

	sessions, err := controller.Sessions.GetRecent(GetUserID(c), limit)
	if err != nil {
		respondInternalError(c, err, "list import sessions")
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"sessions": sessions})
}
