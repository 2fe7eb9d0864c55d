package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/plazalabs/plaza/internal/config"
	"github.com/plazalabs/plaza/internal/protocol"
)

// ChatService is the collaborator that durably persists messages before the
// gateway fans them out.
type ChatService interface {
	SendRoomMessage(ctx context.Context, room, senderID, content string) error
	SendDirectMessage(ctx context.Context, senderID, receiverID, content string) error
}

// App coordinates the WebSocket listener, session lifecycle, and event
// routing into the coordinator.
type App struct {
	cfg      config.ServerConfig
	coord    *Coordinator
	hub      *Hub
	chat     ChatService
	log      *slog.Logger
	upgrader websocket.Upgrader
}

// NewApp constructs a gateway instance using the provided dependencies.
func NewApp(cfg config.ServerConfig, coord *Coordinator, hub *Hub, chat ChatService, log *slog.Logger) *App {
	return &App{
		cfg:   cfg,
		coord: coord,
		hub:   hub,
		chat:  chat,
		log:   log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Run serves the gateway until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		a.serveConnection(ctx, w, r)
	})

	server := &http.Server{
		Addr:    a.cfg.ListenAddr,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return <-errCh
	case err := <-errCh:
		return err
	}
}

func (a *App) serveConnection(parentCtx context.Context, w http.ResponseWriter, r *http.Request) {
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	session := NewSession()
	a.hub.Track(session.Handle(), session.sendCh)

	defer func() {
		a.coord.Disconnect(context.WithoutCancel(ctx), session)
		a.hub.Forget(session.Handle())
		session.close()
	}()

	go a.writeLoop(ctx, conn, session)
	a.readLoop(ctx, conn, session)
}

func (a *App) readLoop(ctx context.Context, conn *websocket.Conn, session *Session) {
	for {
		if err := conn.SetReadDeadline(time.Now().Add(a.cfg.ReadTimeout)); err != nil {
			a.log.Warn("set read deadline", "handle", session.Handle(), "error", err)
			return
		}
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				a.log.Debug("read loop ended", "handle", session.Handle(), "error", err)
			}
			return
		}

		env, err := protocol.DecodeEnvelope(frame)
		if err != nil {
			a.log.Warn("dropping malformed frame", "handle", session.Handle(), "error", err)
			continue
		}
		a.dispatch(ctx, session, env)
	}
}

func (a *App) writeLoop(ctx context.Context, conn *websocket.Conn, session *Session) {
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-session.sendCh:
			if !ok {
				return
			}
			if a.cfg.WriteTimeout > 0 {
				if err := conn.SetWriteDeadline(time.Now().Add(a.cfg.WriteTimeout)); err != nil {
					return
				}
			}
			if err := conn.WriteJSON(env); err != nil {
				a.log.Debug("write loop ended", "handle", session.Handle(), "error", err)
				return
			}
		}
	}
}
