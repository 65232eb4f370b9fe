package platforms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/postpilot/postpilot/publisher/domain"
)

const httpTimeout = 15 * time.Second

var httpClient = &http.Client{Timeout: httpTimeout}

// postJSON sends a JSON body and decodes the JSON response into out.
// Non-2xx statuses are returned as errors carrying the response body.
func postJSON(ctx context.Context, url string, headers map[string]string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(string(data), 300))
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// resolveCredential fetches the stored credential and wraps missing ones as
// a PublishError so configuration gaps follow the normal failure path.
func resolveCredential(ctx context.Context, creds domain.CredentialSource, platform string) (domain.Credential, error) {
	cred, err := creds.Credential(ctx, platform)
	if err != nil {
		return domain.Credential{}, &domain.PublishError{
			Platform: platform,
			Message:  "missing credentials",
			Err:      err,
		}
	}
	return cred, nil
}

// extraField reads one key out of the credential's Extra JSON blob.
func extraField(cred domain.Credential, key string) string {
	if cred.Extra == "" {
		return ""
	}
	var extra map[string]string
	if err := json.Unmarshal([]byte(cred.Extra), &extra); err != nil {
		return ""
	}
	return extra[key]
}

func publishErr(platform, message string, err error) error {
	return &domain.PublishError{Platform: platform, Message: message, Err: err}
}
