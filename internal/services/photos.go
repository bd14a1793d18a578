// Google Photos [Destination] implementation
//
// Uploads are two-step: raw bytes to the uploads endpoint (returning an
// upload token), then mediaItems:batchCreate to commit up to fifty tokens in
// one call. The batchCreate response lists per-item statuses in request order.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/desertthunder/windsync/internal/models"
	"github.com/desertthunder/windsync/internal/shared"
)

const (
	defaultPhotosUploadURL = "https://photoslibrary.googleapis.com/v1/uploads"
	defaultPhotosCreateURL = "https://photoslibrary.googleapis.com/v1/mediaItems:batchCreate"
	defaultPhotosListURL   = "https://photoslibrary.googleapis.com/v1/mediaItems"

	// The Photos API silently truncates longer descriptions.
	maxDescriptionLen = 1000
)

// PhotosService implements the [Destination] interface for Google Photos.
//
// Like [DriveService], instances are not shared across workers.
type PhotosService struct {
	uploadURL  string
	createURL  string
	listURL    string
	tokens     *TokenSource
	httpClient *http.Client
}

// NewPhotosService creates a new Photos destination instance.
func NewPhotosService(tokens *TokenSource, client *http.Client) *PhotosService {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}

	return &PhotosService{
		uploadURL:  defaultPhotosUploadURL,
		createURL:  defaultPhotosCreateURL,
		listURL:    defaultPhotosListURL,
		tokens:     tokens,
		httpClient: client,
	}
}

// Name returns the service name.
func (p *PhotosService) Name() string {
	return "Google Photos"
}

// UploadBytes uploads raw content and returns the upload token the Photos API
// hands back as the response body.
func (p *PhotosService) UploadBytes(ctx context.Context, data []byte, name string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.uploadURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	if err := p.authorize(ctx, req); err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Goog-Upload-File-Name", name)
	req.Header.Set("X-Goog-Upload-Protocol", "raw")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: upload failed: %v", shared.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp); err != nil {
		return "", err
	}

	token, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read upload token: %v", shared.ErrRemoteUnavailable, err)
	}
	return string(token), nil
}

// batchCreate request/response shapes
type simpleMediaItem struct {
	UploadToken string `json:"uploadToken"`
	FileName    string `json:"fileName"`
}

type newMediaItem struct {
	SimpleMediaItem simpleMediaItem `json:"simpleMediaItem"`
	Description     string          `json:"description,omitempty"`
}

type mediaItemStatus struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type newMediaItemResult struct {
	UploadToken string          `json:"uploadToken"`
	Status      mediaItemStatus `json:"status"`
}

type batchCreateResponse struct {
	NewMediaItemResults []newMediaItemResult `json:"newMediaItemResults"`
}

// CommitBatch commits up to [MaxCommitBatch] uploaded items in one
// batchCreate call and maps the response statuses positionally back to items.
func (p *PhotosService) CommitBatch(ctx context.Context, items []models.PendingCommit) ([]models.CommitOutcome, error) {
	if len(items) == 0 {
		return nil, nil
	}
	if len(items) > MaxCommitBatch {
		return nil, fmt.Errorf("%w: batch of %d exceeds limit of %d", shared.ErrInvalidArgument, len(items), MaxCommitBatch)
	}

	newItems := make([]newMediaItem, len(items))
	for i, item := range items {
		description := item.Description
		if len(description) > maxDescriptionLen {
			description = description[:maxDescriptionLen]
		}
		newItems[i] = newMediaItem{
			SimpleMediaItem: simpleMediaItem{
				UploadToken: item.UploadToken,
				FileName:    item.Name,
			},
			Description: description,
		}
	}

	body, err := json.Marshal(map[string]any{"newMediaItems": newItems})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.createURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if err := p.authorize(ctx, req); err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: batch commit failed: %v", shared.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp); err != nil {
		return nil, err
	}

	var parsed batchCreateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode batch response: %w", err)
	}

	outcomes := make([]models.CommitOutcome, len(items))
	for i := range items {
		outcomes[i] = models.CommitOutcome{Name: items[i].Name}
		if i >= len(parsed.NewMediaItemResults) {
			outcomes[i].Message = "no status returned"
			continue
		}

		status := parsed.NewMediaItemResults[i].Status
		// gRPC status: code 0 = OK. Some responses carry only a message.
		if status.Code == 0 || strings.Contains(strings.ToLower(status.Message), "success") {
			outcomes[i].OK = true
		} else {
			outcomes[i].Message = status.Message
		}
	}
	return outcomes, nil
}

type mediaItem struct {
	Filename string `json:"filename"`
}

type mediaItemList struct {
	MediaItems    []mediaItem `json:"mediaItems"`
	NextPageToken string      `json:"nextPageToken"`
}

// ListAllNames pages through the entire Photos library and returns every
// filename present. There is no search-by-filename endpoint, so this is the
// only way to learn what the library already holds.
func (p *PhotosService) ListAllNames(ctx context.Context) ([]string, error) {
	var names []string
	pageToken := ""

	for {
		params := url.Values{}
		params.Set("pageSize", "100")
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.listURL+"?"+params.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		if err := p.authorize(ctx, req); err != nil {
			return nil, err
		}

		resp, err := p.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: library scan failed: %v", shared.ErrRemoteUnavailable, err)
		}

		if err := classifyStatus(resp); err != nil {
			resp.Body.Close()
			return nil, err
		}

		var page mediaItemList
		err = json.NewDecoder(resp.Body).Decode(&page)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to decode library page: %w", err)
		}

		for _, item := range page.MediaItems {
			if item.Filename != "" {
				names = append(names, item.Filename)
			}
		}

		pageToken = page.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return names, nil
}

func (p *PhotosService) authorize(ctx context.Context, req *http.Request) error {
	token, err := p.tokens.AccessToken(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}
