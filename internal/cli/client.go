package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ppiankov/clawgate/internal/config"
)

var (
	clientServer string
	clientToken  string
)

// apiClient talks to a running clawgate daemon.
type apiClient struct {
	base  string
	token string
	http  *http.Client
}

// newAPIClient resolves the server address and token from flags,
// falling back to the local config file.
func newAPIClient() (*apiClient, error) {
	base := clientServer
	token := clientToken

	if base == "" || token == "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		if base == "" {
			base = fmt.Sprintf("http://%s:%d", cfg.API.Host, cfg.API.Port)
		}
		if token == "" {
			token = cfg.API.Token
		}
	}

	return &apiClient{
		base:  base,
		token: token,
		http:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// call performs one request and decodes the response envelope. Error
// envelopes become Go errors carrying the server's code and message.
func (c *apiClient) call(method, path string, body any) (map[string]any, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, c.base+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response (%s): %w", resp.Status, err)
	}

	if ok, _ := out["ok"].(bool); !ok {
		code, _ := out["error_code"].(string)
		msg, _ := out["error"].(string)
		return out, fmt.Errorf("%s: %s", code, msg)
	}
	return out, nil
}

func printJSON(v any) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}
