package http

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/JM-Mushraf/TownSquare-sub000/internal/domain"
	"github.com/JM-Mushraf/TownSquare-sub000/internal/log"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	liveWriteWait  = 10 * time.Second
	livePongWait   = 60 * time.Second
	livePingPeriod = livePongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// CORS already guards the HTTP surface; the feed is read only.
	CheckOrigin: func(*http.Request) bool { return true },
}

type liveMsg struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Live godoc
// @Summary Stream results of a poll or survey over a websocket
// @Description Sends a results snapshot on connect and again after every accepted vote.
// @Tags voting
// @Param postId path string true "post id"
// @Success 101
// @Failure 404 {object} errorResp
// @Router /post/{postId}/live [get]
func (h *Handler) Live(c *gin.Context) {
	ctx := c.Request.Context()
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(c.Param("postId")))
	if err != nil {
		fail(c, fmt.Errorf("%w: post %q", domain.ErrNotFound, c.Param("postId")))
		return
	}
	// Same key Vote publishes under.
	postID := oid.Hex()

	// Subscribe first: a vote accepted while the snapshot is built still
	// leaves a pending wakeup.
	wake, cancel := h.Hub.Subscribe(postID)
	defer cancel()

	// Resolve before upgrading so a bad id still gets a plain JSON error.
	first, err := h.Voting.GetResults(ctx, postID)
	if err != nil {
		fail(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	lg := log.WithDD(ctx, log.L()).With(zap.String("post_id", postID))

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(livePongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(livePongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(m liveMsg) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
		if err := conn.WriteJSON(m); err != nil {
			lg.Debug("live write failed", zap.Error(err))
			return false
		}
		return true
	}

	if !send(liveMsg{Type: "results", Payload: first}) {
		return
	}

	ping := time.NewTicker(livePingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-closed:
			return
		case <-ctx.Done():
			return
		case <-wake:
			res, err := h.Voting.GetResults(ctx, postID)
			if err != nil {
				// Post deleted or store down; tell the watcher and hang up.
				send(liveMsg{Type: "error", Payload: err.Error()})
				return
			}
			if !send(liveMsg{Type: "results", Payload: res}) {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
