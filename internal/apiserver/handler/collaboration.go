package handler

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/amoylab/snipcollab/internal/collab"
	"github.com/amoylab/snipcollab/internal/collab/cursor"
	"github.com/amoylab/snipcollab/internal/collab/edit"
	"github.com/amoylab/snipcollab/internal/collab/session"
	"github.com/amoylab/snipcollab/internal/common/cnst"
	"github.com/amoylab/snipcollab/internal/i18n"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Update types accepted by HandleUpdate
const (
	updateCursor     = "cursor"
	updateSelection  = "selection"
	updateTextChange = "text_change"
	updateMessage    = "message"
)

const maxUpdateBody = 1 << 20

// Collaboration exposes the session manager over HTTP
type Collaboration struct {
	logger     *zap.Logger
	manager    *collab.Manager
	cleanupKey string
}

// NewCollaboration creates the collaboration handler
func NewCollaboration(logger *zap.Logger, manager *collab.Manager, cleanupKey string) *Collaboration {
	return &Collaboration{
		logger:     logger.Named("handler.collaboration"),
		manager:    manager,
		cleanupKey: cleanupKey,
	}
}

// RegisterRoutes mounts the endpoints. auth guards every route except the cleanup trigger.
func (h *Collaboration) RegisterRoutes(r gin.IRouter, auth gin.HandlerFunc) {
	g := r.Group("/collaboration")
	g.POST("/cleanup", h.HandleCleanup)

	authed := g.Group("", auth)
	authed.POST("/sessions", h.HandleCreateSession)
	authed.GET("/session/:token", h.HandleJoinSession)
	authed.POST("/session/:token", h.HandleUpdate)
	authed.DELETE("/session/:token", h.HandleLeaveSession)
	authed.DELETE("/session/:token/end", h.HandleEndSession)
	authed.GET("/session/:token/state", h.HandleGetSession)
	authed.GET("/updates/:token", h.HandleGetUpdates)
}

// fail writes err as a response, uncoded errors are logged and reported as internal errors
func (h *Collaboration) fail(c *gin.Context, err error) {
	var coded *i18n.ErrorWithCode
	if !errors.As(err, &coded) {
		h.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString(cnst.XRequestID)),
			zap.Error(err))
	}
	i18n.RespondWithError(c, err)
}

type createSessionRequest struct {
	SnippetID uint `json:"snippet_id"`
}

// HandleCreateSession opens or joins the session of a snippet
func (h *Collaboration) HandleCreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.SnippetID == 0 {
		h.fail(c, i18n.ErrorSnippetIDRequired)
		return
	}

	sess, err := h.manager.CreateSession(c.Request.Context(), req.SnippetID)
	if err != nil {
		h.fail(c, err)
		return
	}

	i18n.RespondCreated(c, i18n.SuccessSessionCreated, gin.H{
		"session_token": sess.Token,
		"snippet_id":    sess.SnippetID,
		"participants":  sess.Participants,
		"created_at":    sess.CreatedAt,
	})
}

// HandleJoinSession joins the session and returns its state
func (h *Collaboration) HandleJoinSession(c *gin.Context) {
	sess, err := h.manager.JoinSession(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.fail(c, err)
		return
	}

	i18n.RespondOK(c, i18n.SuccessSessionJoined, gin.H{
		"session_token": sess.Token,
		"snippet_id":    sess.SnippetID,
		"participants":  sess.Participants,
		"cursors":       sess.Cursors,
		"last_activity": sess.LastActivity,
		"created_at":    sess.CreatedAt,
	})
}

// HandleGetSession returns the session state to a participant without joining
func (h *Collaboration) HandleGetSession(c *gin.Context) {
	sess, err := h.manager.GetSession(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_token":   sess.Token,
		"snippet_id":      sess.SnippetID,
		"participants":    sess.Participants,
		"cursors":         sess.Cursors,
		"content_version": sess.ContentVersion,
		"last_activity":   sess.LastActivity,
		"created_at":      sess.CreatedAt,
	})
}

// HandleUpdate dispatches a cursor, selection, text change or chat message on its type field
func (h *Collaboration) HandleUpdate(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxUpdateBody))
	if err != nil || !gjson.ValidBytes(body) {
		h.fail(c, i18n.ErrorInvalidUpdateType)
		return
	}

	ctx := c.Request.Context()
	token := c.Param("token")

	switch gjson.GetBytes(body, "type").String() {
	case updateCursor:
		pos, err := parsePosition(body)
		if err != nil {
			h.fail(c, err)
			return
		}
		cur, err := h.manager.UpdateCursor(ctx, token, pos)
		if err != nil {
			h.fail(c, err)
			return
		}
		i18n.RespondOK(c, i18n.SuccessUpdateApplied, gin.H{"updated_at": cur.UpdatedAt})

	case updateSelection:
		sel, err := parseSelection(body)
		if err != nil {
			h.fail(c, err)
			return
		}
		cur, err := h.manager.UpdateSelection(ctx, token, sel)
		if err != nil {
			h.fail(c, err)
			return
		}
		i18n.RespondOK(c, i18n.SuccessUpdateApplied, gin.H{"updated_at": cur.UpdatedAt})

	case updateTextChange:
		change := gjson.GetBytes(body, "change")
		if !change.IsObject() {
			h.fail(c, i18n.ErrorInvalidEdit)
			return
		}
		var op edit.Operation
		if err := json.Unmarshal([]byte(change.Raw), &op); err != nil {
			h.fail(c, i18n.ErrorInvalidEdit)
			return
		}
		var base *int64
		if v := gjson.GetBytes(body, "base_version"); v.Exists() {
			if v.Type != gjson.Number {
				h.fail(c, i18n.ErrorInvalidEdit)
				return
			}
			n := v.Int()
			base = &n
		}
		res, err := h.manager.ApplyEdit(ctx, token, op, base)
		if err != nil {
			h.fail(c, err)
			return
		}
		i18n.RespondOK(c, i18n.SuccessUpdateApplied, gin.H{
			"updated_at":      res.UpdatedAt,
			"code":            res.Code,
			"version":         res.Version,
			"snippet_version": res.SnippetVersion,
		})

	case updateMessage:
		msg := gjson.GetBytes(body, "message")
		if msg.Type != gjson.String {
			h.fail(c, i18n.ErrorEmptyMessage)
			return
		}
		ev, err := h.manager.PostChatMessage(ctx, token, msg.String())
		if err != nil {
			h.fail(c, err)
			return
		}
		i18n.RespondOK(c, i18n.SuccessUpdateApplied, gin.H{"updated_at": ev.Timestamp})

	default:
		h.fail(c, i18n.ErrorInvalidUpdateType)
	}
}

func parsePosition(body []byte) (cursor.Position, error) {
	res := gjson.GetManyBytes(body, "line", "column")
	for _, v := range res {
		if v.Type != gjson.Number || v.Int() < 0 {
			return cursor.Position{}, i18n.ErrorInvalidPosition
		}
	}
	return cursor.Position{Line: int(res[0].Int()), Column: int(res[1].Int())}, nil
}

func parseSelection(body []byte) (session.Selection, error) {
	raw := gjson.GetBytes(body, "selection")
	if !raw.IsObject() {
		return session.Selection{}, i18n.ErrorInvalidPosition
	}
	res := gjson.GetMany(raw.Raw, "start_line", "start_column", "end_line", "end_column")
	for _, v := range res {
		if v.Type != gjson.Number || v.Int() < 0 {
			return session.Selection{}, i18n.ErrorInvalidPosition
		}
	}
	return session.Selection{
		StartLine:   int(res[0].Int()),
		StartColumn: int(res[1].Int()),
		EndLine:     int(res[2].Int()),
		EndColumn:   int(res[3].Int()),
	}, nil
}

// HandleLeaveSession removes the caller from the session
func (h *Collaboration) HandleLeaveSession(c *gin.Context) {
	left, err := h.manager.LeaveSession(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.fail(c, err)
		return
	}
	i18n.RespondOK(c, i18n.SuccessSessionLeft, gin.H{"left": left})
}

// HandleEndSession deletes the session for everyone
func (h *Collaboration) HandleEndSession(c *gin.Context) {
	ended, err := h.manager.EndSession(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.fail(c, err)
		return
	}
	i18n.RespondOK(c, i18n.SuccessSessionEnded, gin.H{"ended": ended})
}

// HandleGetUpdates returns the delta since the since query parameter
func (h *Collaboration) HandleGetUpdates(c *gin.Context) {
	var since int64
	if s := c.Query("since"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil || v < 0 {
			h.fail(c, i18n.ErrorInvalidSince)
			return
		}
		since = v
	}

	updates, err := h.manager.GetUpdates(c.Request.Context(), c.Param("token"), since)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updates)
}

// HandleCleanup runs one cleanup sweep for an external scheduler holding the cleanup key
func (h *Collaboration) HandleCleanup(c *gin.Context) {
	key := c.GetHeader(cnst.XCleanupKey)
	if h.cleanupKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(h.cleanupKey)) != 1 {
		h.fail(c, i18n.ErrorInvalidCleanupKey)
		return
	}

	deleted := h.manager.SweepExpired(c.Request.Context())
	i18n.RespondOK(c, i18n.SuccessCleanupDone, gin.H{"deleted": deleted})
}
