// Google Drive [Source] implementation
//
// Uses the Drive v3 REST API directly: files.list for enumeration and
// files/{id}?alt=media for content downloads.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/windsync/internal/models"
	"github.com/desertthunder/windsync/internal/shared"
)

const defaultDriveBaseURL = "https://www.googleapis.com/drive/v3"

// Media types the sync pipeline handles.
var SupportedMimeTypes = []string{
	"image/jpeg", "image/png", "image/gif", "image/webp",
	"image/heic", "image/heif", "image/bmp", "image/tiff",
	"video/mp4", "video/quicktime", "video/x-msvideo",
	"video/mpeg", "video/3gpp",
}

// DriveService implements the [Source] interface for Google Drive.
//
// Not shared across workers; the pool hands each worker its own instance so
// no HTTP client is used from two goroutines at once.
type DriveService struct {
	baseURL    string
	tokens     *TokenSource
	httpClient *http.Client
}

// NewDriveService creates a new Drive source instance.
func NewDriveService(tokens *TokenSource, client *http.Client) *DriveService {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}

	return &DriveService{
		baseURL:    defaultDriveBaseURL,
		tokens:     tokens,
		httpClient: client,
	}
}

// Name returns the service name.
func (d *DriveService) Name() string {
	return "Google Drive"
}

// driveFile is the subset of the files resource windsync requests.
type driveFile struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MimeType     string `json:"mimeType"`
	Size         string `json:"size"` // the API returns int64 as a string
	CreatedTime  string `json:"createdTime"`
	ModifiedTime string `json:"modifiedTime"`
}

type driveFileList struct {
	NextPageToken string      `json:"nextPageToken"`
	Files         []driveFile `json:"files"`
}

// ListMedia enumerates all supported media files within scope, paging through
// files.list. With a recursive folder scope the folder tree is walked first
// and each folder queried in turn.
func (d *DriveService) ListMedia(ctx context.Context, scope ListScope) ([]models.MediaFile, error) {
	var folderIDs []string
	switch {
	case scope.FolderID != "" && scope.Recursive:
		ids, err := d.collectFolderIDs(ctx, scope.FolderID)
		if err != nil {
			return nil, err
		}
		folderIDs = ids
	case scope.FolderID != "":
		folderIDs = []string{scope.FolderID}
	default:
		folderIDs = []string{""}
	}

	var all []models.MediaFile
	for _, folderID := range folderIDs {
		files, err := d.listFolder(ctx, folderID, scope.Since)
		if err != nil {
			return nil, err
		}
		all = append(all, files...)
	}
	return all, nil
}

func (d *DriveService) listFolder(ctx context.Context, folderID string, since time.Time) ([]models.MediaFile, error) {
	mimeFilters := make([]string, len(SupportedMimeTypes))
	for i, m := range SupportedMimeTypes {
		mimeFilters[i] = fmt.Sprintf("mimeType='%s'", m)
	}

	query := "(" + strings.Join(mimeFilters, " or ") + ")"
	if folderID != "" {
		query += fmt.Sprintf(" and '%s' in parents", folderID)
	}
	if !since.IsZero() {
		query += fmt.Sprintf(" and modifiedTime > '%s'", since.UTC().Format(time.RFC3339))
	}
	query += " and trashed = false"

	var files []models.MediaFile
	pageToken := ""

	for {
		params := url.Values{}
		params.Set("q", query)
		params.Set("pageSize", "1000")
		params.Set("fields", "nextPageToken, files(id, name, mimeType, size, createdTime, modifiedTime)")
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var page driveFileList
		if err := d.get(ctx, "/files?"+params.Encode(), &page); err != nil {
			return nil, err
		}

		for _, f := range page.Files {
			files = append(files, toMediaFile(f))
		}

		pageToken = page.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return files, nil
}

// collectFolderIDs walks the folder tree under rootID depth-first and returns
// rootID plus every descendant folder ID.
func (d *DriveService) collectFolderIDs(ctx context.Context, rootID string) ([]string, error) {
	ids := []string{rootID}
	query := fmt.Sprintf(
		"'%s' in parents and mimeType = 'application/vnd.google-apps.folder' and trashed = false",
		rootID,
	)
	pageToken := ""

	for {
		params := url.Values{}
		params.Set("q", query)
		params.Set("pageSize", "1000")
		params.Set("fields", "nextPageToken, files(id, name)")
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var page driveFileList
		if err := d.get(ctx, "/files?"+params.Encode(), &page); err != nil {
			return nil, err
		}

		for _, folder := range page.Files {
			children, err := d.collectFolderIDs(ctx, folder.ID)
			if err != nil {
				return nil, err
			}
			ids = append(ids, children...)
		}

		pageToken = page.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return ids, nil
}

// Download fetches the file's content completely into memory.
func (d *DriveService) Download(ctx context.Context, file models.MediaFile) ([]byte, error) {
	apiURL := fmt.Sprintf("%s/files/%s?alt=media", d.baseURL, url.PathEscape(file.ID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if err := d.authorize(ctx, req); err != nil {
		return nil, err
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: download failed: %v", shared.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read download: %v", shared.ErrRemoteUnavailable, err)
	}
	return data, nil
}

func (d *DriveService) get(ctx context.Context, endpoint string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if err := d.authorize(ctx, req); err != nil {
		return err
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: request failed: %v", shared.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (d *DriveService) authorize(ctx context.Context, req *http.Request) error {
	token, err := d.tokens.AccessToken(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

func toMediaFile(f driveFile) models.MediaFile {
	file := models.MediaFile{
		ID:       f.ID,
		Name:     f.Name,
		MimeType: f.MimeType,
	}
	if f.Size != "" {
		if size, err := strconv.ParseInt(f.Size, 10, 64); err == nil {
			file.Size = size
		}
	}
	if t, err := time.Parse(time.RFC3339, f.CreatedTime); err == nil {
		file.CreatedTime = t
	}
	if t, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
		file.ModifiedTime = t
	}
	return file
}

// classifyStatus maps a non-2xx response to the shared error taxonomy,
// draining a short prefix of the body for the error message.
func classifyStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	detail := strings.TrimSpace(string(body))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: HTTP 429: %s", shared.ErrRateLimited, detail)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: HTTP %d: %s", shared.ErrRemoteUnavailable, resp.StatusCode, detail)
	default:
		return fmt.Errorf("%w: HTTP %d: %s", shared.ErrRemoteRejected, resp.StatusCode, detail)
	}
}
