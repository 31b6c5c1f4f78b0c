package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// ============================================================
// Write helpers and PostgREST filter builders
// ============================================================

func (c *Client) doPost(ctx context.Context, table string, data map[string]any) error {
	url := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, table)
	jsonBody, err := json.Marshal(data)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return err
	}
	c.setHeaders(req, "return=minimal")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("supabase: POST request failed",
			zap.String("table", table),
			zap.Error(err),
		)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := readBody(resp)
		c.logger.Warn("supabase: POST non-2xx",
			zap.String("table", table),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		return &statusError{Status: resp.StatusCode, Body: upstreamMessage(body)}
	}

	c.logger.Debug("supabase: POST OK", zap.String("table", table), zap.Int("status", resp.StatusCode))
	return nil
}

func readBody(resp *http.Response) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// inList renders a PostgREST in.(...) filter value, quoting each item.
func inList(values ...string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
	}
	return "in.(" + strings.Join(quoted, ",") + ")"
}

// ilikeContains renders a case-insensitive literal substring filter.
// PostgREST turns every * into %, so * is dropped; the LIKE metacharacters
// %, _ and \ are backslash-escaped.
func ilikeContains(fragment string) string {
	r := strings.NewReplacer(
		"*", "",
		`\`, `\\`, "%", `\%`, "_", `\_`,
		",", " ", "(", " ", ")", " ",
	)
	return "ilike.*" + strings.TrimSpace(r.Replace(fragment)) + "*"
}
