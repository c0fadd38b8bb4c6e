package api

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"coin-ledger/internal/domain"
	"coin-ledger/internal/idhash"
	"coin-ledger/internal/observability"
)

const (
	feedWriteTimeout = 10 * time.Second
	feedMaxMessage   = 512
)

// Feed message types.
const (
	feedSnapshot = "snapshot"
	feedError    = "error"
)

type feedMessage struct {
	Type         string           `json:"type"`
	Transactions []transactionDTO `json:"transactions,omitempty"`
	Error        string           `json:"error,omitempty"`
}

// handleFeed streams ledger snapshots over a websocket: one on connect and
// another whenever the ledger digest changes. The digest covers every row, so
// a ledger rebuilt to the same size is still pushed.
func (s *Server) handleFeed(c *gin.Context) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.allowOrigin,
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the error response.
		s.log.WithError(err).Debug("websocket upgrade failed")
		return
	}
	defer conn.Close()

	s.subscribers.Add(1)
	observability.FeedSubscribed(1)
	defer func() {
		s.subscribers.Add(-1)
		observability.FeedSubscribed(-1)
	}()

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	log := s.log.WithField("request_id", c.GetString(requestIDKey))
	log.Info("feed subscriber connected")
	defer log.Info("feed subscriber disconnected")

	// Reader: detects client close and keeps pong deadlines moving.
	conn.SetReadLimit(feedMaxMessage)
	conn.SetReadDeadline(time.Now().Add(2 * s.pingInterval))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(2 * s.pingInterval))
	})
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	rows, err := s.query.FetchEnrichedTransactions(ctx)
	if err == nil {
		err = sendSnapshot(conn, rows)
	}
	if err != nil {
		s.closeFeed(conn, err)
		return
	}

	lastDigest := idhash.ComputeLedgerDigest(rows)

	poll := time.NewTicker(s.feedInterval)
	defer poll.Stop()
	ping := time.NewTicker(s.pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return

		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-poll.C:
			rows, err := s.query.FetchEnrichedTransactions(ctx)
			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				s.closeFeed(conn, err)
				return
			}
			digest := idhash.ComputeLedgerDigest(rows)
			if digest == lastDigest {
				continue
			}
			if err := sendSnapshot(conn, rows); err != nil {
				s.closeFeed(conn, err)
				return
			}
			lastDigest = digest
		}
	}
}

// sendSnapshot writes rows as one snapshot message.
func sendSnapshot(conn *websocket.Conn, rows []*domain.EnrichedTransaction) error {
	conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
	if err := conn.WriteJSON(feedMessage{Type: feedSnapshot, Transactions: newTransactionDTOs(rows)}); err != nil {
		return errFeedWrite{err}
	}
	return nil
}

// errFeedWrite marks failures writing to the subscriber itself.
type errFeedWrite struct{ err error }

func (e errFeedWrite) Error() string { return "feed write: " + e.err.Error() }
func (e errFeedWrite) Unwrap() error { return e.err }

// closeFeed reports err to the subscriber, unless the connection is the problem.
func (s *Server) closeFeed(conn *websocket.Conn, err error) {
	var writeErr errFeedWrite
	if errors.As(err, &writeErr) {
		return
	}

	s.log.WithError(err).Error("live feed failed")
	conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
	conn.WriteJSON(feedMessage{Type: feedError, Error: messageFor(err)})
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseInternalServerErr, messageFor(err)))
}
