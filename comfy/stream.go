package comfy

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/rakib91221/StableGen/graph"
	"github.com/rakib91221/StableGen/types"
)

// binaryHeaderLen is the length of the event/format prefix on binary
// stream frames. It precedes the raw image bytes and is discarded.
const binaryHeaderLen = 8

// ProgressFunc observes sampling progress. max is zero until the backend
// reports the first progress frame.
type ProgressFunc func(value, max int)

// statusFrame is the JSON envelope of a text frame on the stream.
type statusFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type executingData struct {
	Node     *string `json:"node"`
	PromptID string  `json:"prompt_id"`
}

type progressData struct {
	Value int `json:"value"`
	Max   int `json:"max"`
}

type errorData struct {
	NodeType         string `json:"node_type"`
	ExceptionMessage string `json:"exception_message"`
}

// Execute submits the graph and blocks on its execution stream until the
// backend reports completion, returning the image bytes emitted by the
// graph's sink node. Cancelling the context interrupts the backend job and
// returns a cancelled error.
func (c *Client) Execute(ctx context.Context, g *graph.Graph, onProgress ProgressFunc) ([]byte, error) {
	conn, _, err := websocket.Dial(ctx,
		fmt.Sprintf("ws://%s/ws?clientId=%s", c.addr, c.clientID), nil)
	if err != nil {
		return nil, types.NewError(types.ErrConnection,
			"backend stream unreachable at %s", c.addr).WithCause(err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")
	// Image frames exceed the default read limit.
	conn.SetReadLimit(-1)

	promptID, err := c.Submit(ctx, g)
	if err != nil {
		return nil, err
	}

	var (
		image     []byte
		atSink    bool
		sinkID    = g.SinkID()
		sawOurRun bool
		logger    = c.logger.With(zap.String("prompt_id", promptID))
	)
	for {
		msgType, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.interruptBestEffort(logger)
				return nil, types.NewError(types.ErrCancelled, "generation cancelled").
					WithCause(ctx.Err())
			}
			return nil, types.NewError(types.ErrConnection,
				"execution stream closed unexpectedly").WithCause(err)
		}

		if msgType == websocket.MessageBinary {
			if atSink && len(data) > binaryHeaderLen {
				image = append(image[:0], data[binaryHeaderLen:]...)
			}
			continue
		}

		var frame statusFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			logger.Warn("undecodable stream frame", zap.Error(err))
			continue
		}

		switch frame.Type {
		case "executing":
			var ed executingData
			if err := json.Unmarshal(frame.Data, &ed); err != nil {
				continue
			}
			if ed.PromptID != promptID {
				continue
			}
			sawOurRun = true
			if ed.Node == nil {
				if image == nil {
					return nil, types.NewError(types.ErrBackendExecution,
						"execution finished without emitting an image")
				}
				logger.Debug("execution complete", zap.Int("image_bytes", len(image)))
				return image, nil
			}
			atSink = *ed.Node == sinkID

		case "progress":
			if !sawOurRun || onProgress == nil {
				continue
			}
			var pd progressData
			if err := json.Unmarshal(frame.Data, &pd); err != nil {
				continue
			}
			onProgress(pd.Value, pd.Max)

		case "execution_error":
			var ed errorData
			_ = json.Unmarshal(frame.Data, &ed)
			return nil, types.NewError(types.ErrBackendExecution,
				"backend error in %s: %s", ed.NodeType, ed.ExceptionMessage)

		case "execution_interrupted":
			return nil, types.NewError(types.ErrCancelled,
				"generation interrupted by backend")
		}
	}
}

// interruptBestEffort sends the interrupt on a fresh context since the
// run's context is already cancelled.
func (c *Client) interruptBestEffort(logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Interrupt(ctx); err != nil {
		logger.Warn("interrupt after cancel failed", zap.Error(err))
	}
}
