package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/okian/bracketd/internal/domain/bracket"
	"github.com/okian/bracketd/internal/domain/model"
	"github.com/okian/bracketd/internal/domain/types"
)

// client talks to one tournament of a bracketd instance.
type client struct {
	http *http.Client
	base string
	path string
}

func newClient(baseURL, tournament string, timeout time.Duration) *client {
	return &client{
		http: &http.Client{Timeout: timeout},
		base: baseURL,
		path: baseURL + "/tournaments/" + url.PathEscape(tournament),
	}
}

func (c *client) do(ctx context.Context, method, target string, body any) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, r)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.http.Do(req)
}

// drain reads and closes the body so the connection can be reused.
func drain(resp *http.Response) []byte {
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return b
}

func (c *client) health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, c.base+"/healthz", nil)
	if err != nil {
		return err
	}
	drain(resp)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *client) seed(ctx context.Context, matches []bracket.Match) error {
	body := struct {
		Matches []bracket.Match `json:"matches"`
	}{Matches: matches}
	resp, err := c.do(ctx, http.MethodPut, c.path+"/matches", body)
	if err != nil {
		return err
	}
	b := drain(resp)
	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("seed returned status %d: %s", resp.StatusCode, b)
	}
	return nil
}

// submit posts one update and returns the response status.
func (c *client) submit(ctx context.Context, u model.LevelUpdate) (int, error) {
	resp, err := c.do(ctx, http.MethodPost, c.path+"/levels", u)
	if err != nil {
		return 0, err
	}
	drain(resp)
	return resp.StatusCode, nil
}

func (c *client) bracket(ctx context.Context) (types.BracketView, error) {
	var v types.BracketView
	resp, err := c.do(ctx, http.MethodGet, c.path+"/bracket", nil)
	if err != nil {
		return v, err
	}
	b := drain(resp)
	if resp.StatusCode != http.StatusOK {
		return v, fmt.Errorf("bracket returned status %d: %s", resp.StatusCode, b)
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return v, fmt.Errorf("failed to decode bracket: %w", err)
	}
	return v, nil
}
