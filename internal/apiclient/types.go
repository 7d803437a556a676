package apiclient

// HashInfo identifies a candidate replay for the check-hashes batch call.
type HashInfo struct {
	Hash     string `json:"hash"`
	Filename string `json:"filename"`
	Filesize int64  `json:"filesize"`
}

// CheckHashesRequest is the request body for POST /api/my-replays/check-hashes.
type CheckHashesRequest struct {
	Hashes []HashInfo `json:"hashes"`
}

// CheckHashesResponse is the response body for POST /api/my-replays/check-hashes.
type CheckHashesResponse struct {
	NewHashes       []string `json:"new_hashes"`
	ExistingCount   int      `json:"existing_count"`
	TotalSubmitted  int      `json:"total_submitted"`
	ManifestVersion string   `json:"manifest_version"`
}

// StoredReplay is the server's representation of an accepted upload.
type StoredReplay struct {
	ID       string `json:"id"`
	Hash     string `json:"hash"`
	Filename string `json:"filename"`
}

// UploadReplayResponse is the tagged-union response body for the upload
// endpoint (spec.md §4.4).
type UploadReplayResponse struct {
	Success bool          `json:"success"`
	Replay  *StoredReplay `json:"replay,omitempty"`
	Error   *APIError     `json:"error,omitempty"`
}

// APIError is the error arm of UploadReplayResponse.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// ReplayDuplicateCode is the server error code treated as idempotent
// success, per spec.md §4.4 / §7.
const ReplayDuplicateCode = "REPLAY_DUPLICATE"

// ManifestVersionResponse is the response body for GET
// /api/my-replays/manifest-version.
type ManifestVersionResponse struct {
	ManifestVersion string `json:"manifest_version"`
	CheckedAt       string `json:"checked_at"`
}

// UserSettings is the settings payload embedded in UserSettingsResponse.
type UserSettings struct {
	ConfirmedPlayerNames []string       `json:"confirmed_player_names"`
	PossiblePlayerNames  map[string]int `json:"possible_player_names"`
}

// UserSettingsResponse is the response body for GET /api/settings.
type UserSettingsResponse struct {
	Settings UserSettings `json:"settings"`
}

// DeviceCodeResponse is returned by POST /api/auth/device/code, the first
// step of the device-authorization flow (spec.md's auth supplement, grounded
// on original_source/device_auth.rs).
type DeviceCodeResponse struct {
	DeviceCode      string `json:"device_code"`
	UserCode        string `json:"user_code"`
	VerificationURI string `json:"verification_uri"`
	ExpiresIn       int64  `json:"expires_in"`
	Interval        int64  `json:"interval"`
}

// DeviceUser is the account data embedded in a completed device-auth response.
type DeviceUser struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
}

// AuthResponse is returned by GET /api/auth/device/poll once the user has
// approved the device code in their browser.
type AuthResponse struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	TokenType    string     `json:"token_type"`
	ExpiresIn    int64      `json:"expires_in"`
	User         DeviceUser `json:"user"`
}
