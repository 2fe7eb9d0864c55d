package protocol

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrInvalidPayload reports a payload that failed decoding or validation.
	ErrInvalidPayload = errors.New("invalid event payload")
	// ErrUnknownEvent reports an envelope outside the closed event set.
	ErrUnknownEvent = errors.New("unknown event")

	validate = validator.New()
)

var clientEvents = map[EventName]struct{}{
	EventUserLogin:       {},
	EventRoomJoin:        {},
	EventRoomExit:        {},
	EventGetRoomUserList: {},
	EventMessage:         {},
	EventDM:              {},
}

// DecodeEnvelope parses a raw frame into an envelope and rejects event names
// a client is not allowed to send.
func DecodeEnvelope(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return env, err
	}
	if _, ok := clientEvents[env.Event]; !ok {
		return env, ErrUnknownEvent
	}
	return env, nil
}

// DecodeUserLogin validates and decodes a userLogin payload.
func DecodeUserLogin(data json.RawMessage) (UserLoginPayload, error) {
	var req UserLoginPayload
	if err := decodeInto(data, &req); err != nil {
		return req, err
	}
	return req, nil
}

// DecodeRoomJoin validates and decodes a roomJoin payload.
func DecodeRoomJoin(data json.RawMessage) (RoomJoinPayload, error) {
	var req RoomJoinPayload
	if err := decodeInto(data, &req); err != nil {
		return req, err
	}
	req.Nickname = strings.TrimSpace(req.Nickname)
	req.Room = strings.TrimSpace(req.Room)
	if req.Nickname == "" || req.Room == "" {
		return req, ErrInvalidPayload
	}
	return req, nil
}

// DecodeRoomKey decodes the bare room string carried by getRoomUserList.
func DecodeRoomKey(data json.RawMessage) (string, error) {
	if len(data) == 0 {
		return "", ErrInvalidPayload
	}
	var room string
	if err := json.Unmarshal(data, &room); err != nil {
		return "", ErrInvalidPayload
	}
	room = strings.TrimSpace(room)
	if room == "" {
		return "", ErrInvalidPayload
	}
	return room, nil
}

// DecodeMessage validates and decodes a room chat payload.
func DecodeMessage(data json.RawMessage) (MessagePayload, error) {
	var req MessagePayload
	if err := decodeInto(data, &req); err != nil {
		return req, err
	}
	return req, nil
}

// DecodeDM validates and decodes a direct-message payload.
func DecodeDM(data json.RawMessage) (DMPayload, error) {
	var req DMPayload
	if err := decodeInto(data, &req); err != nil {
		return req, err
	}
	return req, nil
}

func decodeInto(data json.RawMessage, target interface{}) error {
	if len(data) == 0 {
		return ErrInvalidPayload
	}
	if err := json.Unmarshal(data, target); err != nil {
		return ErrInvalidPayload
	}
	if err := validate.Struct(target); err != nil {
		return ErrInvalidPayload
	}
	return nil
}
