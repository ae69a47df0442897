package api

import (
	"context"
	"fmt"

	"chat-sync/domain"
	apperr "chat-sync/errors"
)

// Messages fetches one history page for a room. Pages count from 1; the
// server returns newest-last within a page.
func (c *Client) Messages(ctx context.Context, roomID string, page, limit int) ([]domain.Message, domain.Pagination, error) {
	var envelope messagesEnvelope
	if err := c.get(ctx, "/chat/messages", pageQuery(roomID, page, limit), &envelope); err != nil {
		return nil, domain.Pagination{}, err
	}
	if !envelope.Success {
		return nil, domain.Pagination{}, fmt.Errorf("%w: %s", apperr.ErrServerRejected, envelope.Error)
	}
	pagination := domain.Pagination{
		Page:       envelope.Pagination.Page,
		TotalPages: envelope.Pagination.TotalPages,
	}
	return toMessages(envelope.Messages), pagination, nil
}

// PostMessage submits a message and returns the server-confirmed record.
// This is the one call that carries the anti-forgery header.
func (c *Client) PostMessage(ctx context.Context, req domain.PostMessageRequest) (domain.Message, error) {
	body := postMessageBody{
		RoomID:   req.RoomID,
		Content:  req.Content,
		Type:     string(req.Type),
		FileURL:  req.FileURL,
		FileName: req.FileName,
		FileSize: req.FileSize,
		ReplyTo:  req.ReplyTo,
	}
	var envelope messageEnvelope
	if err := c.post(ctx, "/chat/messages", body, &envelope, true); err != nil {
		return domain.Message{}, err
	}
	if !envelope.Success {
		return domain.Message{}, fmt.Errorf("%w: %s", apperr.ErrServerRejected, envelope.Error)
	}
	return envelope.Message.ToDomain(), nil
}
