// Package ws streams hosted runs to browser renderers over websockets and
// accepts their input.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cory-johannsen/survivors/internal/game/geom"
	"github.com/cory-johannsen/survivors/internal/game/sim"
	"github.com/cory-johannsen/survivors/internal/gameserver"
	"github.com/cory-johannsen/survivors/internal/observability"
)

const (
	writeWait    = 5 * time.Second
	maxFrameSize = 4096
)

// clientMessage is what a renderer sends.
type clientMessage struct {
	// Type is "command" (text line) or "move" (analog direction).
	Type string  `json:"type"`
	Line string  `json:"line,omitempty"`
	DX   float64 `json:"dx,omitempty"`
	DY   float64 `json:"dy,omitempty"`
	Seq  uint64  `json:"seq,omitempty"`
}

type replyFrame struct {
	Type  string `json:"type"`
	Seq   uint64 `json:"seq,omitempty"`
	Reply string `json:"reply,omitempty"`
	Error string `json:"error,omitempty"`
}

type snapshotFrame struct {
	Type     string       `json:"type"`
	Snapshot sim.Snapshot `json:"snapshot"`
}

type welcomeFrame struct {
	Type    string `json:"type"`
	Session string `json:"session"`
	Profile string `json:"profile"`
}

// Viewer is the websocket endpoint. A connection names its profile with the
// "profile" query parameter; it receives a welcome frame, then snapshot
// frames every interval and event frames as they happen.
type Viewer struct {
	host     *gameserver.Host
	interval time.Duration
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewViewer creates a Viewer. Browsers may connect from the viewer's own
// origin and from each entry of allowedOrigins ("scheme://host[:port]");
// the entry "*" admits every origin. Requests without an Origin header are
// not browser requests and are always admitted.
//
// Precondition: host and logger must be non-nil; interval must be > 0.
func NewViewer(host *gameserver.Host, interval time.Duration, allowedOrigins []string, logger *zap.Logger) *Viewer {
	return &Viewer{
		host:     host,
		interval: interval,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// originChecker admits same-origin requests plus the listed origins.
func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.ToLower(strings.TrimRight(o, "/"))] = struct{}{}
	}
	_, wildcard := set["*"]
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || wildcard {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		if strings.EqualFold(u.Host, r.Host) {
			return true
		}
		_, ok := set[strings.ToLower(u.Scheme+"://"+u.Host)]
		return ok
	}
}

// ServeHTTP upgrades the request and serves the connection until either
// side closes it. The profile's session is left when the connection ends.
func (v *Viewer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !v.upgrader.CheckOrigin(r) {
		v.logger.Warn("rejecting cross-origin viewer", zap.String("origin", r.Header.Get("Origin")))
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}
	profile := r.URL.Query().Get("profile")
	if profile == "" {
		http.Error(w, "missing profile", http.StatusBadRequest)
		return
	}
	sess, err := v.host.Join(r.Context(), profile)
	if err != nil {
		v.logger.Error("joining profile", zap.String("profile", profile), zap.Error(err))
		http.Error(w, "join failed", http.StatusInternalServerError)
		return
	}

	conn, err := v.upgrader.Upgrade(w, r, nil)
	if err != nil {
		v.logger.Warn("upgrade failed", zap.String("profile", profile), zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxFrameSize)

	logger := observability.SessionLogger(v.logger, profile, sess.ID)
	logger.Info("viewer connected", zap.String("remote_addr", r.RemoteAddr))
	start := time.Now()

	ctx, cancel := context.WithCancel(context.Background())
	replies := make(chan any, 16)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		// Closing unblocks the reader when the writer gives up first.
		defer conn.Close()
		v.writeLoop(ctx, conn, sess.ID, sess.Outbox.Events(), replies, logger)
	}()

	replies <- welcomeFrame{Type: "welcome", Session: sess.ID, Profile: profile}
	v.readLoop(ctx, conn, sess.ID, replies, logger)
	cancel()
	wg.Wait()

	if err := v.host.Leave(context.Background(), sess.ID); err != nil && !errors.Is(err, gameserver.ErrSessionNotFound) {
		logger.Error("leaving session", zap.Error(err))
	}
	logger.Info("viewer disconnected", zap.Duration("duration", time.Since(start)))
}

func (v *Viewer) readLoop(ctx context.Context, conn *websocket.Conn, sessionID string, replies chan<- any, logger *zap.Logger) {
	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				logger.Debug("discarding malformed message", zap.Error(err))
				continue
			}
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("read ended", zap.Error(err))
			}
			return
		}
		reply := v.handle(sessionID, msg)
		select {
		case replies <- reply:
		case <-ctx.Done():
			return
		}
	}
}

func (v *Viewer) handle(sessionID string, msg clientMessage) replyFrame {
	out := replyFrame{Type: "reply", Seq: msg.Seq}
	var err error
	switch msg.Type {
	case "command":
		out.Reply, err = v.host.Execute(sessionID, msg.Line)
	case "move":
		t, terr := v.host.Target(sessionID)
		if terr != nil {
			err = terr
			break
		}
		err = t.SetMovement(geom.V(msg.DX, msg.DY))
	default:
		err = errors.New("unknown message type " + msg.Type)
	}
	if err != nil {
		out.Error = err.Error()
	}
	return out
}

func (v *Viewer) writeLoop(ctx context.Context, conn *websocket.Conn, sessionID string, events <-chan []byte, replies <-chan any, logger *zap.Logger) {
	ticker := time.NewTicker(v.interval)
	defer ticker.Stop()
	for {
		var err error
		select {
		case <-ctx.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case frame, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			err = conn.WriteMessage(websocket.TextMessage, frame)
		case r := <-replies:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			err = conn.WriteJSON(r)
		case <-ticker.C:
			snap, serr := v.host.Snapshot(sessionID)
			if serr != nil {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			err = conn.WriteJSON(snapshotFrame{Type: "snapshot", Snapshot: snap})
		}
		if err != nil {
			logger.Debug("write failed", zap.Error(err))
			return
		}
	}
}
