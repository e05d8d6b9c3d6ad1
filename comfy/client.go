package comfy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rakib91221/StableGen/graph"
	"github.com/rakib91221/StableGen/types"
)

// Client talks to one backend instance. A fresh client id is minted per
// Client so the execution stream only carries this client's events.
type Client struct {
	addr     string
	clientID string
	http     *http.Client
	logger   *zap.Logger
}

// NewClient returns a client for the backend at addr (host:port).
func NewClient(addr string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		addr:     addr,
		clientID: uuid.NewString(),
		http:     &http.Client{Timeout: 30 * time.Second},
		logger:   logger.With(zap.String("component", "comfy")),
	}
}

// ClientID returns the id binding this client to its websocket stream.
func (c *Client) ClientID() string { return c.clientID }

type submitRequest struct {
	Prompt   *graph.Graph `json:"prompt"`
	ClientID string       `json:"client_id"`
}

type submitResponse struct {
	PromptID string `json:"prompt_id"`
}

// Submit enqueues a graph for execution and returns the backend's prompt
// id. Reachability failures map to the connection error code so callers
// can distinguish "backend down" from "backend rejected the graph".
func (c *Client) Submit(ctx context.Context, g *graph.Graph) (string, error) {
	body, err := json.Marshal(submitRequest{Prompt: g, ClientID: c.clientID})
	if err != nil {
		return "", types.NewError(types.ErrGraphInvalid, "encode graph: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("http://%s/prompt", c.addr), bytes.NewReader(body))
	if err != nil {
		return "", types.NewError(types.ErrConnection, "build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", types.NewError(types.ErrConnection,
			"backend unreachable at %s", c.addr).WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", types.NewError(types.ErrBackendExecution,
			"submit rejected with status %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	}

	var sr submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", types.NewError(types.ErrBackendExecution,
			"decode submit response: %v", err)
	}
	if sr.PromptID == "" {
		return "", types.NewError(types.ErrBackendExecution,
			"submit response carries no prompt id")
	}

	c.logger.Debug("graph submitted",
		zap.String("prompt_id", sr.PromptID),
		zap.Int("nodes", g.Len()))
	return sr.PromptID, nil
}

// Interrupt asks the backend to abort the currently executing job. Sent
// out of band, independent of the execution stream.
func (c *Client) Interrupt(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("http://%s/interrupt", c.addr), nil)
	if err != nil {
		return types.NewError(types.ErrConnection, "build request: %v", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return types.NewError(types.ErrConnection,
			"backend unreachable at %s", c.addr).WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.NewError(types.ErrBackendExecution,
			"interrupt rejected with status %d", resp.StatusCode)
	}
	c.logger.Info("interrupt sent")
	return nil
}

// Ping verifies the backend is reachable. Used for pre-run validation so
// configuration problems surface before any scene work starts.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("http://%s/system_stats", c.addr), nil)
	if err != nil {
		return types.NewError(types.ErrConnection, "build request: %v", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return types.NewError(types.ErrConnection,
			"backend unreachable at %s", c.addr).WithCause(err)
	}
	resp.Body.Close()
	return nil
}
