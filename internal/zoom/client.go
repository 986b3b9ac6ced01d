// Package zoom is the outbound client for the video-conferencing provider:
// server-to-server OAuth per named account, meeting creation, recording
// metadata and playback lookups.
package zoom

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lms-live/backend/config"
	"github.com/lms-live/backend/internal/models"
)

var (
	// ErrAccountNotConfigured means no credential set exists for the account name.
	ErrAccountNotConfigured = errors.New("zoom account not configured")
	// ErrMeetingNotFound maps the provider's 404 for meetings.
	ErrMeetingNotFound = errors.New("zoom meeting not found")
	// ErrRecordingNotFound means the recording no longer exists upstream
	// (deleted or expired). Callers surface this as a distinct denial.
	ErrRecordingNotFound = errors.New("zoom recording not found")
)

// Meeting is a created provider meeting.
type Meeting struct {
	ID       int64  `json:"id"`
	UUID     string `json:"uuid"`
	JoinURL  string `json:"join_url"`
	StartURL string `json:"start_url,omitempty"`
}

// MeetingRequest describes a meeting to create.
type MeetingRequest struct {
	Topic         string
	StartTime     time.Time
	DurationMin   int
	Timezone      string
	AutoRecording string
}

// RecordingInfo is the live recording state of a meeting: current file
// descriptors plus the playback passcode.
type RecordingInfo struct {
	MeetingID string
	Passcode  string
	Files     []models.RecordingFile
}

// Participant is one past-meeting participant.
type Participant struct {
	Name      string     `json:"name"`
	UserEmail string     `json:"user_email"`
	JoinTime  *time.Time `json:"join_time"`
	LeaveTime *time.Time `json:"leave_time"`
	Duration  int        `json:"duration"`
}

type cachedToken struct {
	value     string
	expiresAt time.Time
}

// Client calls the provider API. Safe for concurrent use; access tokens are
// cached per account until shortly before expiry.
type Client struct {
	cfg    config.ZoomConfig
	http   *http.Client
	logger *zap.Logger

	mu     sync.Mutex
	tokens map[string]cachedToken
}

// NewClient creates a provider API client.
func NewClient(cfg config.ZoomConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		logger: logger,
		tokens: make(map[string]cachedToken),
	}
}

// CreateMeeting creates a scheduled meeting for the account's user.
func (c *Client) CreateMeeting(ctx context.Context, account string, req MeetingRequest) (*Meeting, error) {
	body := map[string]any{
		"topic":    req.Topic,
		"type":     2, // scheduled
		"duration": req.DurationMin,
		"settings": map[string]any{
			"auto_recording": req.AutoRecording,
		},
	}
	if !req.StartTime.IsZero() {
		body["start_time"] = req.StartTime.Format("2006-01-02T15:04:05")
	}
	if req.Timezone != "" {
		body["timezone"] = req.Timezone
	}
	var meeting Meeting
	if err := c.call(ctx, account, http.MethodPost, "/users/me/meetings", body, &meeting); err != nil {
		return nil, err
	}
	return &meeting, nil
}

// GetRecordingInfo fetches the current recording files and playback passcode
// for a meeting. The result is live provider state, never cached: the
// passcode and play URLs have a provider-imposed validity window.
func (c *Client) GetRecordingInfo(ctx context.Context, account, meetingID string) (*RecordingInfo, error) {
	var resp struct {
		ID                    json.Number            `json:"id"`
		Password              string                 `json:"password"`
		RecordingPlayPasscode string                 `json:"recording_play_passcode"`
		RecordingFiles        []models.RecordingFile `json:"recording_files"`
	}
	path := "/meetings/" + url.PathEscape(meetingID) + "/recordings"
	if err := c.call(ctx, account, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	passcode := resp.RecordingPlayPasscode
	if passcode == "" {
		passcode = resp.Password
	}
	return &RecordingInfo{
		MeetingID: resp.ID.String(),
		Passcode:  passcode,
		Files:     resp.RecordingFiles,
	}, nil
}

// GetRecordingPasscode fetches only the playback passcode for a meeting's
// recording. The webhook payload never carries it.
func (c *Client) GetRecordingPasscode(ctx context.Context, account, meetingID string) (string, error) {
	info, err := c.GetRecordingInfo(ctx, account, meetingID)
	if err != nil {
		return "", err
	}
	return info.Passcode, nil
}

// GetPastMeetingParticipants fetches the participant list of a past meeting
// by its UUID.
func (c *Client) GetPastMeetingParticipants(ctx context.Context, account, meetingUUID string) ([]Participant, error) {
	var resp struct {
		Participants []Participant `json:"participants"`
	}
	// UUIDs starting with / or containing // must be double-encoded per the
	// provider's API rules.
	encoded := url.QueryEscape(meetingUUID)
	if strings.HasPrefix(meetingUUID, "/") || strings.Contains(meetingUUID, "//") {
		encoded = url.QueryEscape(encoded)
	}
	path := "/past_meetings/" + encoded + "/participants"
	if err := c.call(ctx, account, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Participants, nil
}

func (c *Client) call(ctx context.Context, account, method, path string, body any, out any) error {
	token, err := c.accessToken(ctx, account)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reader = strings.NewReader(string(raw))
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.APIBaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("zoom %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		if strings.Contains(path, "/recordings") {
			return ErrRecordingNotFound
		}
		return ErrMeetingNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("zoom %s %s: status %d: %s", method, path, resp.StatusCode, string(raw))
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// accessToken returns a valid access token for the named account, fetching a
// new one via the account_credentials grant when the cached token is missing
// or about to expire.
func (c *Client) accessToken(ctx context.Context, account string) (string, error) {
	creds, ok := c.cfg.Account(account)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrAccountNotConfigured, account)
	}

	c.mu.Lock()
	cached, ok := c.tokens[creds.Name]
	c.mu.Unlock()
	if ok && time.Now().Before(cached.expiresAt) {
		return cached.value, nil
	}

	form := url.Values{}
	form.Set("grant_type", "account_credentials")
	form.Set("account_id", creds.AccountID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.OAuthBaseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	basic := base64.StdEncoding.EncodeToString([]byte(creds.ClientID + ":" + creds.ClientSecret))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("oauth token: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("oauth token: status %d: %s", resp.StatusCode, string(raw))
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", errors.New("oauth token: empty access_token")
	}

	expiry := time.Now().Add(time.Duration(tokenResp.ExpiresIn)*time.Second - time.Minute)
	c.mu.Lock()
	c.tokens[creds.Name] = cachedToken{value: tokenResp.AccessToken, expiresAt: expiry}
	c.mu.Unlock()

	c.logger.Debug("zoom access token refreshed", zap.String("account", creds.Name))
	return tokenResp.AccessToken, nil
}
