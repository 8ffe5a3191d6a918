package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
)

// FilePart is one file in a multipart upload.
type FilePart struct {
	Field    string
	FileName string
	Content  []byte
}

// Upload posts a multipart form, bypassing the JSON content type. Fields are
// plain form values; the response still uses the standard envelope, and the
// usual 401 refresh and replay applies.
func (c *Client) Upload(ctx context.Context, path string, files []FilePart, fields map[string]string, out any) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, file := range files {
		part, err := writer.CreateFormFile(file.Field, file.FileName)
		if err != nil {
			return fmt.Errorf("go-stories: multipart part %s: %w", file.Field, err)
		}
		if _, err := part.Write(file.Content); err != nil {
			return fmt.Errorf("go-stories: multipart part %s: %w", file.Field, err)
		}
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return fmt.Errorf("go-stories: multipart field %s: %w", key, err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("go-stories: close multipart body: %w", err)
	}
	req := request{
		method:      http.MethodPost,
		path:        path,
		body:        buf.Bytes(),
		contentType: writer.FormDataContentType(),
	}
	_, err := c.call(ctx, req, out)
	return err
}
