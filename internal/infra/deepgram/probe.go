package deepgram

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Probe checks that the configured key is accepted. Only an explicit 401 or
// 403 counts as denied; an unreachable API is left for Start to report.
func (r *Recognizer) Probe(ctx context.Context) error {
	if strings.TrimSpace(r.cfg.APIKey) == "" {
		return nil
	}

	endpoint := strings.TrimRight(strings.TrimSpace(r.cfg.APIBaseURL), "/") + "/projects"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+r.cfg.APIKey)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.logger.Warn("deepgram probe failed", "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("deepgram rejected api key: %s", resp.Status)
	}
	return nil
}
