package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/ladderlegends/sc2-uploader-agent/internal/agenterr"
)

// Sentinel errors for PollAuthorization's three non-success outcomes, mirrored
// from original_source/device_auth.rs's 428/410/403 status-code handling.
var (
	ErrAuthorizationPending = errors.New("device authorization pending")
	ErrDeviceCodeExpired    = errors.New("device code expired")
	ErrAuthorizationDenied  = errors.New("device authorization denied")
)

const deviceClientID = "ladder-legends-uploader"

// RequestDeviceCode begins the device-authorization flow.
func (c *Client) RequestDeviceCode(ctx context.Context) (*DeviceCodeResponse, error) {
	payload, err := json.Marshal(struct {
		ClientID string `json:"client_id"`
	}{ClientID: deviceClientID})
	if err != nil {
		return nil, agenterr.New(agenterr.NetworkError, "apiclient.RequestDeviceCode", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/auth/device/code", nil, bytes.NewReader(payload))
	if err != nil {
		return nil, agenterr.New(agenterr.NetworkError, "apiclient.RequestDeviceCode", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, agenterr.New(agenterr.NetworkError, "apiclient.RequestDeviceCode", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, agenterr.New(agenterr.NetworkError, "apiclient.RequestDeviceCode",
			errStatus(resp.StatusCode))
	}
	var out DeviceCodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, agenterr.New(agenterr.NetworkError, "apiclient.RequestDeviceCode", err)
	}
	return &out, nil
}

// PollAuthorization checks whether the user has approved deviceCode. A single
// check, no internal retry loop - the caller decides the polling cadence
// (device_auth.rs's poll_authorization has the same contract).
func (c *Client) PollAuthorization(ctx context.Context, deviceCode string) (*AuthResponse, error) {
	query := url.Values{}
	query.Set("device_code", deviceCode)
	req, err := c.newRequest(ctx, http.MethodGet, "/api/auth/device/poll", query, nil)
	if err != nil {
		return nil, agenterr.New(agenterr.NetworkError, "apiclient.PollAuthorization", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, agenterr.New(agenterr.NetworkError, "apiclient.PollAuthorization", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var out AuthResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, agenterr.New(agenterr.NetworkError, "apiclient.PollAuthorization", err)
		}
		return &out, nil
	case http.StatusPreconditionRequired: // 428
		return nil, ErrAuthorizationPending
	case http.StatusGone: // 410
		return nil, ErrDeviceCodeExpired
	case http.StatusForbidden: // 403
		return nil, ErrAuthorizationDenied
	default:
		return nil, agenterr.New(agenterr.NetworkError, "apiclient.PollAuthorization", errStatus(resp.StatusCode))
	}
}

// RefreshAccessToken exchanges a refresh token for a new access token.
func (c *Client) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	payload, err := json.Marshal(struct {
		RefreshToken string `json:"refresh_token"`
	}{RefreshToken: refreshToken})
	if err != nil {
		return "", agenterr.New(agenterr.NetworkError, "apiclient.RefreshAccessToken", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/auth/device/refresh", nil, bytes.NewReader(payload))
	if err != nil {
		return "", agenterr.New(agenterr.NetworkError, "apiclient.RefreshAccessToken", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", agenterr.New(agenterr.NetworkError, "apiclient.RefreshAccessToken", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", agenterr.New(agenterr.NetworkError, "apiclient.RefreshAccessToken", errStatus(resp.StatusCode))
	}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", agenterr.New(agenterr.NetworkError, "apiclient.RefreshAccessToken", err)
	}
	return out.AccessToken, nil
}

// VerifyAccessToken asks the server whether accessToken is still valid.
func (c *Client) VerifyAccessToken(ctx context.Context, accessToken string) (bool, error) {
	payload, err := json.Marshal(struct {
		AccessToken string `json:"access_token"`
	}{AccessToken: accessToken})
	if err != nil {
		return false, agenterr.New(agenterr.NetworkError, "apiclient.VerifyAccessToken", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/auth/device/verify", nil, bytes.NewReader(payload))
	if err != nil {
		return false, agenterr.New(agenterr.NetworkError, "apiclient.VerifyAccessToken", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, agenterr.New(agenterr.NetworkError, "apiclient.VerifyAccessToken", err)
	}
	defer resp.Body.Close()
	var out struct {
		Valid bool `json:"valid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, agenterr.New(agenterr.NetworkError, "apiclient.VerifyAccessToken", err)
	}
	return out.Valid, nil
}

func errStatus(code int) error {
	return &statusError{code: code}
}

type statusError struct{ code int }

func (e *statusError) Error() string {
	return http.StatusText(e.code)
}
