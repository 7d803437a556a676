// Package apiclient implements C4 (API Client): the bearer-token HTTP
// contracts consumed by the scanner and executor services.
//
// Grounded on _examples/original_source/src-tauri/src/replay_uploader.rs for
// endpoint shapes. Percent-encoding of query values is a deliberate
// deviation from that file (see DESIGN.md "Open Question decisions").
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ladderlegends/sc2-uploader-agent/internal/agenterr"
)

// Version is the agent version advertised in the User-Agent header.
const Version = "1.0.0"

const requestTimeout = 60 * time.Second

// Client is a thread-safe HTTP client wrapping net/http's pooled transport
// (spec.md §5: "thread-safe HTTP client with internal connection pool;
// shared by reference"). No third-party HTTP client library is directly
// imported anywhere in the retrieved corpus - see DESIGN.md.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
	userAgent   string
}

// New constructs a Client bound to baseURL, authenticating with accessToken.
func New(baseURL, accessToken string) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: requestTimeout},
		userAgent:   fmt.Sprintf("ladder-legends-uploader/%s", Version),
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	full := c.baseURL + path
	if len(query) > 0 {
		full += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, full, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	return req, nil
}

// CheckHashes sends a batch of candidate hashes and returns which are new.
func (c *Client) CheckHashes(ctx context.Context, hashes []HashInfo) (*CheckHashesResponse, error) {
	payload, err := json.Marshal(CheckHashesRequest{Hashes: hashes})
	if err != nil {
		return nil, agenterr.New(agenterr.NetworkError, "apiclient.CheckHashes", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/my-replays/check-hashes", nil, bytes.NewReader(payload))
	if err != nil {
		return nil, agenterr.New(agenterr.NetworkError, "apiclient.CheckHashes", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, agenterr.New(agenterr.NetworkError, "apiclient.CheckHashes", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, agenterr.New(agenterr.NetworkError, "apiclient.CheckHashes",
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	var out CheckHashesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, agenterr.New(agenterr.NetworkError, "apiclient.CheckHashes", err)
	}
	return &out, nil
}

// UploadReplay uploads the file at path, attributing it to playerName and
// gameType, with an optional region hint. All query values are
// percent-encoded via url.Values.Encode (spec.md §4.4, §8).
//
// On success the stored replay is returned with a nil error. On a
// duplicate-replay response (HTTP 409, error code REPLAY_DUPLICATE, or an
// error message saying the replay has already been uploaded) the returned
// replay is nil and the error wraps agenterr.DuplicateReplay, so callers can
// treat it as an idempotent success per spec.md §4.4/§7.
func (c *Client) UploadReplay(ctx context.Context, path, playerName, gameType, region string) (*StoredReplay, error) {
	fileBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, agenterr.New(agenterr.IOError, "apiclient.UploadReplay", err)
	}

	query := url.Values{}
	if playerName != "" {
		query.Set("player_name", playerName)
	}
	if gameType != "" {
		query.Set("game_type", gameType)
	}
	if region != "" {
		query.Set("region", region)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, agenterr.New(agenterr.IOError, "apiclient.UploadReplay", err)
	}
	if _, err := part.Write(fileBytes); err != nil {
		return nil, agenterr.New(agenterr.IOError, "apiclient.UploadReplay", err)
	}
	if err := writer.Close(); err != nil {
		return nil, agenterr.New(agenterr.IOError, "apiclient.UploadReplay", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/my-replays", query, &body)
	if err != nil {
		return nil, agenterr.New(agenterr.NetworkError, "apiclient.UploadReplay", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, agenterr.New(agenterr.NetworkError, "apiclient.UploadReplay", err)
	}
	defer resp.Body.Close()

	var out UploadReplayResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, agenterr.New(agenterr.NetworkError, "apiclient.UploadReplay", err)
	}

	if resp.StatusCode == http.StatusConflict ||
		(out.Error != nil && out.Error.Code == ReplayDuplicateCode) ||
		(out.Error != nil && strings.Contains(out.Error.Message, "already been uploaded")) {
		return nil, agenterr.New(agenterr.DuplicateReplay, "apiclient.UploadReplay",
			fmt.Errorf("replay already uploaded"))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !out.Success {
		msg := "unexpected response"
		if out.Error != nil {
			msg = out.Error.Message
		}
		return nil, agenterr.New(agenterr.NetworkError, "apiclient.UploadReplay", fmt.Errorf("%s", msg))
	}
	return out.Replay, nil
}

// GetManifestVersion fetches the server's current manifest token.
func (c *Client) GetManifestVersion(ctx context.Context) (*ManifestVersionResponse, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/my-replays/manifest-version", nil, nil)
	if err != nil {
		return nil, agenterr.New(agenterr.NetworkError, "apiclient.GetManifestVersion", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, agenterr.New(agenterr.NetworkError, "apiclient.GetManifestVersion", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, agenterr.New(agenterr.NetworkError, "apiclient.GetManifestVersion",
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	var out ManifestVersionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, agenterr.New(agenterr.NetworkError, "apiclient.GetManifestVersion", err)
	}
	return &out, nil
}

// GetUserSettings fetches confirmed/possible player-name hints.
func (c *Client) GetUserSettings(ctx context.Context) (*UserSettings, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/settings", nil, nil)
	if err != nil {
		return nil, agenterr.New(agenterr.NetworkError, "apiclient.GetUserSettings", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, agenterr.New(agenterr.NetworkError, "apiclient.GetUserSettings", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, agenterr.New(agenterr.NetworkError, "apiclient.GetUserSettings",
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	var out UserSettingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, agenterr.New(agenterr.NetworkError, "apiclient.GetUserSettings", err)
	}
	return &out.Settings, nil
}

// EncodeQueryRoundTrip is exported only so apiclient's own tests can assert
// the encode/decode round-trip property from spec.md §8 without duplicating
// url.Values logic.
func EncodeQueryRoundTrip(value string) (encoded string, decoded string, err error) {
	v := url.Values{}
	v.Set("player_name", value)
	encoded = v.Encode()
	parsed, err := url.ParseQuery(encoded)
	if err != nil {
		return encoded, "", err
	}
	return encoded, parsed.Get("player_name"), nil
}
