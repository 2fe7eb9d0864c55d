package gateway

import (
	"context"

	"github.com/plazalabs/plaza/internal/auth"
	"github.com/plazalabs/plaza/internal/protocol"
)

// dispatch routes a decoded envelope to its handler. Errors never reach the
// client: a failed presence mutation drops the event and the client repairs
// its view through getRoomUserList.
func (a *App) dispatch(ctx context.Context, session *Session, env protocol.Envelope) {
	var err error
	switch env.Event {
	case protocol.EventUserLogin:
		err = a.handleLogin(ctx, session, env)
	case protocol.EventRoomJoin:
		err = a.handleJoin(ctx, session, env)
	case protocol.EventRoomExit:
		err = a.coord.Exit(ctx, session)
	case protocol.EventGetRoomUserList:
		err = a.handleGetRoomUserList(ctx, env)
	case protocol.EventMessage:
		err = a.handleMessage(ctx, session, env)
	case protocol.EventDM:
		err = a.handleDM(ctx, session, env)
	}
	if err != nil {
		a.log.Warn("event dropped", "event", string(env.Event), "handle", session.Handle(), "error", err)
	}
}

func (a *App) handleLogin(ctx context.Context, session *Session, env protocol.Envelope) error {
	req, err := protocol.DecodeUserLogin(env.Data)
	if err != nil {
		return err
	}

	identity := req.ID
	if req.Token != "" {
		claims, err := auth.ParseToken(a.cfg.JWT, req.Token)
		if err != nil {
			return err
		}
		identity = claims.UserID
	}
	return a.coord.Login(ctx, session, identity)
}

func (a *App) handleJoin(ctx context.Context, session *Session, env protocol.Envelope) error {
	req, err := protocol.DecodeRoomJoin(env.Data)
	if err != nil {
		return err
	}
	return a.coord.Join(ctx, session, req.Nickname, req.Room)
}

func (a *App) handleGetRoomUserList(ctx context.Context, env protocol.Envelope) error {
	room, err := protocol.DecodeRoomKey(env.Data)
	if err != nil {
		return err
	}
	return a.coord.BroadcastRoomUsers(ctx, room)
}

func (a *App) handleMessage(ctx context.Context, session *Session, env protocol.Envelope) error {
	req, err := protocol.DecodeMessage(env.Data)
	if err != nil {
		return err
	}
	senderID := session.Identity()
	if senderID == "" {
		// Misuse: message before login. Treated as a no-op.
		return nil
	}
	return a.chat.SendRoomMessage(ctx, req.Room, senderID, req.Content)
}

func (a *App) handleDM(ctx context.Context, session *Session, env protocol.Envelope) error {
	req, err := protocol.DecodeDM(env.Data)
	if err != nil {
		return err
	}
	senderID := session.Identity()
	if senderID == "" {
		return nil
	}
	return a.chat.SendDirectMessage(ctx, senderID, req.ReceiverID, req.Content)
}
