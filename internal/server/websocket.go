package server

import (
	"net/http"
	"strconv"

	"github.com/Scrimzay/ballwars/internal/relay"
	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandleWebsocket seats the caller in the match and hands the connection to
// the relay until it drops. Query: name, bot (0/1) and token for rejoining.
func HandleWebsocket(hub *relay.Hub, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		m, ok := lookupMatch(c, hub)
		if !ok {
			return
		}
		bot, _ := strconv.ParseBool(c.DefaultQuery("bot", "0"))
		params := relay.JoinParams{
			Name:  c.Query("name"),
			Bot:   bot,
			Token: c.Query("token"),
		}
		if params.Token == "" && !m.Vacancy(bot) {
			c.JSON(http.StatusConflict, gin.H{"error": relay.ErrMatchFull.Error()})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("ws upgrade failed", "match", m.ID, "err", err)
			return
		}
		if err := m.Serve(conn, params); err != nil {
			logger.Info("join refused", "match", m.ID, "err", err)
		}
	}
}
