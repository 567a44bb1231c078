package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"teamdash/controller"
	"teamdash/dto"
	"teamdash/middleware"
	"teamdash/reconcile"
	"teamdash/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const keepAliveInterval = 15 * time.Second

func SessionController(router *gin.Engine, d *controller.Deps, hub *Hub) {
	routes := router.Group("/api/session", d.Auth)
	{
		routes.GET("/events", func(c *gin.Context) {
			StreamEvents(c, d, hub)
		})
		routes.GET("/:id", func(c *gin.Context) {
			command(c, hub, func(s *reconcile.Session) error { return nil })
		})
		routes.POST("/:id/view", func(c *gin.Context) {
			var req dto.ViewRequest
			if !controller.BindJSON(c, &req) {
				return
			}
			command(c, hub, func(s *reconcile.Session) error {
				if req.Mode == string(reconcile.ModeTeam) {
					return s.ShowTeam(req.TeamID)
				}
				return s.ShowPersonal()
			})
		})
		routes.POST("/:id/filters", func(c *gin.Context) {
			var req dto.FiltersRequest
			if !controller.BindJSON(c, &req) {
				return
			}
			command(c, hub, func(s *reconcile.Session) error {
				return s.SetFilters(services.TaskFilters{
					Status: services.StatusFilter(req.Status),
					Sort:   services.SortOrder(req.Sort),
				})
			})
		})
		routes.POST("/:id/details", func(c *gin.Context) {
			var req dto.DetailsRequest
			if !controller.BindJSON(c, &req) {
				return
			}
			command(c, hub, func(s *reconcile.Session) error {
				return s.OpenDetails(req.TaskID)
			})
		})
		routes.DELETE("/:id/details", func(c *gin.Context) {
			command(c, hub, (*reconcile.Session).CloseDetails)
		})
		routes.POST("/:id/roster", func(c *gin.Context) {
			command(c, hub, (*reconcile.Session).OpenRoster)
		})
		routes.DELETE("/:id/roster", func(c *gin.Context) {
			command(c, hub, (*reconcile.Session).CloseRoster)
		})
	}
}

// StreamEvents opens a reconciliation session for the caller and streams its
// render calls as server-sent events until the client goes away.
func StreamEvents(c *gin.Context, d *controller.Deps, hub *Hub) {
	ctx := c.Request.Context()
	logger := services.NewLogger(ctx)
	db, p := d.For(c)

	gone, err := services.FinalizeGhostAccount(ctx, db, d.Identity, p, d.Config.Account.GhostGracePeriod)
	if err != nil {
		controller.RespondError(c, "StreamEvents", err)
		return
	}
	if gone {
		controller.RespondError(c, "StreamEvents", services.ErrGhostAccount)
		return
	}
	if err := services.SyncEmail(ctx, db, p); err != nil {
		logger.LogWarnf("StreamEvents", "uid=%s email sync failed: %v", p.UID, err)
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	write := func(name string, data interface{}) {
		payload, err := json.Marshal(data)
		if err != nil {
			logger.LogErrorf("StreamEvents", "encode %s: %v", name, err)
			return
		}
		fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", name, payload)
		flusher.Flush()
	}

	id := uuid.New().String()
	write("session", gin.H{"id": id})

	filters := services.TaskFilters{
		Status: services.StatusFilter(c.Query("status")),
		Sort:   services.SortOrder(c.Query("sort")),
	}
	r := newSSERenderer(ctx)
	s, err := reconcile.Open(ctx, db, p, r, reconcile.Options{Filters: filters, OnHeal: r.healed})
	if err != nil {
		logger.LogError("StreamEvents", err)
		write("error", gin.H{"error": err.Error()})
		return
	}
	hub.Add(id, p.UID, s)
	defer hub.Remove(id)
	defer s.Close()

	logger.LogInfof("StreamEvents", "session=%s uid=%s opened", id, p.UID)

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.LogInfof("StreamEvents", "session=%s closed by client", id)
			return
		case <-s.Done():
			return
		case ev := <-r.events:
			write(ev.Name, ev.Data)
		case <-ticker.C:
			fmt.Fprint(c.Writer, ": keep-alive\n\n")
			flusher.Flush()
		}
	}
}

// command runs fn on the caller's own session and replies with the resulting
// state.
func command(c *gin.Context, hub *Hub, fn func(*reconcile.Session) error) {
	owner, s, ok := hub.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	if owner != middleware.Principal(c).UID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your session"})
		return
	}

	if err := fn(s); err != nil {
		respondSessionError(c, err)
		return
	}
	st, err := s.State()
	if err != nil {
		respondSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func respondSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, reconcile.ErrSessionClosed):
		c.JSON(http.StatusGone, gin.H{"error": err.Error()})
	case errors.Is(err, reconcile.ErrNoTeamView):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		controller.RespondError(c, "SessionCommand", err)
	}
}
