package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/Scrimzay/ballwars/internal/relay"
	"github.com/Scrimzay/ballwars/internal/session"
	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

func SetupRouter(hub *relay.Hub, logger *log.Logger) *gin.Engine {
	if logger == nil {
		logger = log.Default()
	}
	r := gin.Default()

	r.GET("/healthz", healthHandler)
	r.GET("/schema", schemaHandler)

	r.GET("/matches", listMatchesHandler(hub))
	r.POST("/matches", createMatchHandler(hub, logger))
	r.GET("/matches/:id", matchHandler(hub))
	r.GET("/matches/:id/terrain", terrainHandler(hub, logger))

	r.GET("/matches/:id/ws", HandleWebsocket(hub, logger))

	return r
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func schemaHandler(c *gin.Context) {
	c.JSON(http.StatusOK, session.WireSchema())
}

type createMatchRequest struct {
	Teams int      `json:"teams"`
	Seed  *uint32  `json:"seed"`
	Names []string `json:"names"`
	Bots  []bool   `json:"bots"`
}

func createMatchHandler(hub *relay.Hub, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createMatchRequest
		// an empty body means all defaults
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		m, err := hub.CreateMatch(relay.MatchOptions{
			Teams: req.Teams,
			Seed:  req.Seed,
			Names: req.Names,
			Bots:  req.Bots,
		})
		switch {
		case errors.Is(err, relay.ErrBadTeams):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return

		case err != nil:
			logger.Error("create match failed", "err", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, m.Info())
	}
}

func listMatchesHandler(hub *relay.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, hub.List())
	}
}

func matchHandler(hub *relay.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		m, ok := lookupMatch(c, hub)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, m.Info())
	}
}

// terrainHandler serves the rebuilt terrain as an lz4 snapshot. Clients
// compare the checksum header with their own grid after a terrain_sync.
func terrainHandler(hub *relay.Hub, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		m, ok := lookupMatch(c, hub)
		if !ok {
			return
		}
		snap, err := m.Terrain()
		if err != nil {
			logger.Error("terrain snapshot failed", "match", m.ID, "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Header("X-Terrain-Width", strconv.Itoa(snap.Width))
		c.Header("X-Terrain-Height", strconv.Itoa(snap.Height))
		c.Header("X-Terrain-Checksum", snap.Checksum)
		c.Data(http.StatusOK, "application/octet-stream", snap.Data)
	}
}

func lookupMatch(c *gin.Context, hub *relay.Hub) (*relay.Match, bool) {
	m, err := hub.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return nil, false
	}
	return m, true
}
