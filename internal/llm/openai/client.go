package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/evalstack/cv-evaluator/internal/llm"
)

// Complete implements llm.Invoker using chat/completions with a JSON response
// format. The model content is validated against req.Schema before being
// returned; a mismatch surfaces as *llm.SchemaValidationError.
func (c *Client) Complete(ctx context.Context, req llm.Request) ([]byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("llm.complete.start",
		"req_id", rid,
		"op", req.Op,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"user_len", len(req.User),
	)

	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": req.System},
			{"role": "user", "content": req.User + "\n\nReturn ONLY JSON that matches the provided schema."},
			{"role": "system", "content": "JSON Schema:\n" + req.Schema.JSON()},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	raw, _, err := llm.SendJSON(ctx, c.http, endpoint, body, headers, c.log)
	if err != nil {
		c.log.Error("llm.complete.http_error",
			"req_id", rid, "op", req.Op, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.log.Error("llm.complete.decode_error",
			"req_id", rid, "op", req.Op, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, fmt.Errorf("decode inference response: %w", err)
	}
	if len(cc.Choices) == 0 {
		c.log.Error("llm.complete.no_choices",
			"req_id", rid, "op", req.Op,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, fmt.Errorf("no choices in inference response")
	}
	content := []byte(strings.TrimSpace(cc.Choices[0].Message.Content))

	if req.Schema != nil {
		if err := req.Schema.Validate(content); err != nil {
			c.log.Error("llm.complete.schema_validation_failed",
				"req_id", rid, "op", req.Op, "error", err,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return nil, &llm.SchemaValidationError{Op: req.Op, Err: err}
		}
	}

	c.log.Info("llm.complete.ok",
		"req_id", rid,
		"op", req.Op,
		"content_bytes", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return content, nil
}
