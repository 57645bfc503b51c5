package routes

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"saferoute/internal/service/hosted"
	"saferoute/internal/service/session"
)

const (
	pingPeriod   = 30 * time.Second
	pongWait     = 60 * time.Second
	writeWait    = 5 * time.Second
	sendCapacity = 32
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message types on the session stream
const (
	msgState          = "state"
	msgHostedRequest  = "hosted_request"
	msgHostedResponse = "hosted_response"
	msgError          = "error"
)

type streamMessage struct {
	Type    string          `json:"type"`
	State   *session.State  `json:"state,omitempty"`
	Request *hosted.Request `json:"request,omitempty"`
	Error   string          `json:"error,omitempty"`
}

type inboundMessage struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id"`
	Result    json.RawMessage `json:"result"`
	Status    string          `json:"status"`
	Message   string          `json:"message"`
}

// streamClient owns the outgoing queue of one websocket connection
type streamClient struct {
	once   sync.Once
	done   chan struct{}
	sendCh chan streamMessage
}

func newStreamClient() *streamClient {
	return &streamClient{
		done:   make(chan struct{}),
		sendCh: make(chan streamMessage, sendCapacity),
	}
}

func (s *streamClient) close() {
	s.once.Do(func() { close(s.done) })
}

// offer queues a snapshot, dropping it when the client is behind.
// A later snapshot supersedes it anyway.
func (s *streamClient) offer(msg streamMessage) {
	select {
	case <-s.done:
	case s.sendCh <- msg:
	default:
	}
}

// push queues a message that must not be dropped
func (s *streamClient) push(msg streamMessage) {
	select {
	case <-s.done:
	case s.sendCh <- msg:
	}
}

// Stream upgrades to a websocket that carries session snapshots and, for web
// sessions, hosted-bridge requests. The browser may answer bridge requests on
// the same socket.
func (h *SessionHandler) Stream(c *gin.Context) {
	entry, ok := h.lookup(c)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	log := h.logger.With(zap.String("session", entry.ID))
	client := newStreamClient()
	defer client.close()

	unsubscribeState := entry.Session.Subscribe(func(st session.State) {
		client.offer(streamMessage{Type: msgState, State: &st})
	})
	defer unsubscribeState()

	if entry.Bridge != nil {
		unsubscribeBridge := entry.Bridge.Subscribe(func(req hosted.Request) {
			client.push(streamMessage{Type: msgHostedRequest, Request: &req})
		})
		defer unsubscribeBridge()
	}

	initial := entry.Session.State()
	client.push(streamMessage{Type: msgState, State: &initial})

	go writer(conn, client, log)
	h.reader(conn, client, entry, log)
}

func writer(conn *websocket.Conn, client *streamClient, log *zap.Logger) {
	defer client.close()
	// unblocks the reader when the write side fails first
	defer conn.Close()
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-client.done:
			return
		case msg := <-client.sendCh:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				log.Debug("websocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (h *SessionHandler) reader(conn *websocket.Conn, client *streamClient, entry *session.Entry, log *zap.Logger) {
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("websocket closed", zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		if msg.Type != msgHostedResponse || entry.Bridge == nil {
			client.offer(streamMessage{Type: msgError, Error: "unsupported message type: " + msg.Type})
			continue
		}

		err := answerBridge(entry.Bridge, msg.RequestID, hostedAnswerRequest{
			Result:  msg.Result,
			Status:  msg.Status,
			Message: msg.Message,
		})
		if err != nil {
			log.Warn("hosted answer rejected", zap.String("request", msg.RequestID), zap.Error(err))
			client.offer(streamMessage{Type: msgError, Error: err.Error()})
		}
	}
}
