package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	nethttp "net/http"
	"net/url"
	"strings"

	"github.com/drivelink/drivelink/internal/models"
)

// ListFiles fetches the file list filtered by query.
func (c *Client) ListFiles(ctx context.Context, query string) ([]models.FileRecord, error) {
	path := "/file?query=" + url.QueryEscape(query)

	resp, err := c.doJSON(ctx, nethttp.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var records []models.FileRecord
	if err := decodeInto(resp, &records, nethttp.StatusOK); err != nil {
		return nil, err
	}
	return records, nil
}

// UploadFile uploads content as a multipart form (field "file" plus a
// comma-joined "tags" field). The payload is assembled up front so the
// request can be replayed by the refresh protocol; progress observes
// bytes as the transport consumes them.
func (c *Client) UploadFile(ctx context.Context, name string, content io.Reader, tags []string, progress func(float64)) (*models.FileRecord, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if len(tags) > 0 {
		if err := writer.WriteField("tags", strings.Join(tags, ",")); err != nil {
			return nil, fmt.Errorf("failed to build upload form: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize upload form: %w", err)
	}

	resp, err := c.doRaw(ctx, nethttp.MethodPost, "/file", writer.FormDataContentType(), buf.Bytes(), progress)
	if err != nil {
		return nil, err
	}

	var record models.FileRecord
	if err := decodeInto(resp, &record, nethttp.StatusOK, nethttp.StatusCreated); err != nil {
		return nil, err
	}
	return &record, nil
}

// DeleteFile removes a file from the remote collection.
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	resp, err := c.doJSON(ctx, nethttp.MethodDelete, "/file/"+url.PathEscape(fileID), nil)
	if err != nil {
		return err
	}
	return decodeInto(resp, nil, nethttp.StatusOK, nethttp.StatusNoContent)
}

// DownloadFile streams a file's binary content. The caller owns the
// returned reader and must close it. Size is -1 when unknown.
func (c *Client) DownloadFile(ctx context.Context, fileID string) (io.ReadCloser, int64, error) {
	resp, err := c.doJSON(ctx, nethttp.MethodGet, "/file/"+url.PathEscape(fileID)+"/download", nil)
	if err != nil {
		return nil, 0, err
	}

	if resp.StatusCode != nethttp.StatusOK {
		apiErr := errorFromResponse(resp)
		resp.Body.Close()
		return nil, 0, apiErr
	}
	return resp.Body, resp.ContentLength, nil
}

// UpdateFileTags replaces a file's tag sequence.
func (c *Client) UpdateFileTags(ctx context.Context, fileID string, tags []string) error {
	body := models.TagsUpdateRequest{Tags: tags}
	resp, err := c.doJSON(ctx, nethttp.MethodPatch, "/file/"+url.PathEscape(fileID)+"/tags", body)
	if err != nil {
		return err
	}
	return decodeInto(resp, nil, nethttp.StatusOK, nethttp.StatusNoContent)
}

// RenameFile renames a file and returns the updated record.
func (c *Client) RenameFile(ctx context.Context, fileID, newName string) (*models.FileRecord, error) {
	body := models.RenameRequest{NewName: newName}
	resp, err := c.doJSON(ctx, nethttp.MethodPatch, "/file/"+url.PathEscape(fileID)+"/rename", body)
	if err != nil {
		return nil, err
	}

	var record models.FileRecord
	if err := decodeInto(resp, &record, nethttp.StatusOK); err != nil {
		return nil, err
	}
	return &record, nil
}

// ShareURL builds the public, unauthenticated view link for a file.
func (c *Client) ShareURL(fileID string) string {
	return c.baseURL + "/file/" + url.PathEscape(fileID) + "/view"
}
