package ai

import (
	"io"
	"net/http"
)

// maxErrorBody caps how much of a failed upstream response is kept.
const maxErrorBody = 1 << 20

// statusDoer turns non-2xx upstream responses into *AIError values that keep
// the response body verbatim. go-openai would otherwise re-parse the body.
type statusDoer struct {
	client *http.Client
}

func (d *statusDoer) Do(req *http.Request) (*http.Response, error) {
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	upErr := NewUpstreamError("completion", resp.StatusCode, string(body))
	if readErr != nil {
		upErr.Cause = readErr
	}
	return nil, upErr
}
