package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const callerHeader = "X-Caller-Address"

var httpClient = &http.Client{Timeout: 30 * time.Second}

// postJSON sends body to the API and decodes the response into out when
// out is non-nil. Non-2xx responses are surfaced with the API error code.
func postJSON(opts *RootOptions, path string, body any, out any) error {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequest(http.MethodPost, joinURL(opts.Addr, path), payload)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if opts.Caller != "" {
		req.Header.Set(callerHeader, opts.Caller)
	}
	return doRequest(req, out)
}

func getJSON(opts *RootOptions, path string, out any) error {
	req, err := http.NewRequest(http.MethodGet, joinURL(opts.Addr, path), nil)
	if err != nil {
		return err
	}
	if opts.Caller != "" {
		req.Header.Set(callerHeader, opts.Caller)
	}
	return doRequest(req, out)
}

func doRequest(req *http.Request, out any) error {
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Code != "" {
			return fmt.Errorf("%s: %s", apiErr.Code, apiErr.Message)
		}
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

func joinURL(addr string, path string) string {
	return strings.TrimRight(addr, "/") + path
}
