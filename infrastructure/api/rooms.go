package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"chat-sync/domain"
	apperr "chat-sync/errors"
)

// Rooms fetches the full room list for the current user.
func (c *Client) Rooms(ctx context.Context) ([]domain.Room, error) {
	var envelope roomsEnvelope
	if err := c.get(ctx, "/chat/rooms", nil, &envelope); err != nil {
		return nil, err
	}
	if !envelope.Success {
		return nil, fmt.Errorf("%w: %s", apperr.ErrServerRejected, envelope.Error)
	}
	return toRooms(envelope.Rooms), nil
}

// CreateRoom creates a room and returns the server's record of it.
func (c *Client) CreateRoom(ctx context.Context, cmd domain.CreateRoomCommand) (domain.Room, error) {
	body := createRoomBody{
		Name:      cmd.Name,
		Type:      string(cmd.Type),
		MemberIDs: cmd.MemberIDs,
	}
	var envelope roomEnvelope
	if err := c.post(ctx, "/chat/rooms", body, &envelope, false); err != nil {
		return domain.Room{}, err
	}
	if !envelope.Success {
		return domain.Room{}, fmt.Errorf("%w: %s", apperr.ErrServerRejected, envelope.Error)
	}
	return toRoom(envelope.Room), nil
}

// JoinRoom registers the current user in a room. Servers without an explicit
// join endpoint answer 404, surfaced as ErrNoJoinEndpoint so the directory
// can treat it as success after a refresh.
func (c *Client) JoinRoom(ctx context.Context, roomID string) error {
	err := c.post(ctx, "/chat/rooms/"+roomID+"/join", nil, nil, false)
	var rejection *statusError
	if errors.As(err, &rejection) && rejection.code == http.StatusNotFound {
		return fmt.Errorf("%w: room %s", apperr.ErrNoJoinEndpoint, roomID)
	}
	return err
}

// Presence lists the online user ids of a room. Only the fallback poller
// calls this; the push path receives presence frames instead.
func (c *Client) Presence(ctx context.Context, roomID string) ([]string, error) {
	var envelope presenceEnvelope
	if err := c.get(ctx, "/chat/rooms/"+roomID+"/presence", nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.OnlineUsers, nil
}
