package domain

import "errors"

var (
	ErrEmptyRoomName     = errors.New("room name is empty")
	ErrUnknownConnection = errors.New("connection is not registered")
	ErrNotInRoom         = errors.New("connection is not in a room")
)
