package api

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/gabriel-vasile/mimetype"

	"chat-sync/domain"
	apperr "chat-sync/errors"
)

// Upload pushes a file through the upload endpoint and returns the stored
// attachment. The part's content type is sniffed from the data, not taken
// from the file name.
func (c *Client) Upload(ctx context.Context, file domain.FileUpload) (domain.Attachment, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Name))
	header.Set("Content-Type", mimetype.Detect(file.Data).String())

	part, err := writer.CreatePart(header)
	if err != nil {
		return domain.Attachment{}, fmt.Errorf("%w: %v", apperr.ErrUploadFailed, err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return domain.Attachment{}, fmt.Errorf("%w: %v", apperr.ErrUploadFailed, err)
	}
	if err := writer.Close(); err != nil {
		return domain.Attachment{}, fmt.Errorf("%w: %v", apperr.ErrUploadFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &buf)
	if err != nil {
		return domain.Attachment{}, fmt.Errorf("%w: %v", apperr.ErrUploadFailed, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var envelope uploadEnvelope
	if err := c.send(req, &envelope); err != nil {
		// Keep the cause in the chain: cancellation must stay detectable.
		return domain.Attachment{}, fmt.Errorf("%w: %w", apperr.ErrUploadFailed, err)
	}

	return domain.Attachment{
		URL:  envelope.URL,
		Name: file.Name,
		Size: int64(len(file.Data)),
	}, nil
}
