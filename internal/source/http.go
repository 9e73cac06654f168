package source

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"articast/internal/services"
)

const maxResponseBytes = 32 << 20

func decodeJSON(resp *http.Response, out any) error {
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
	_ = resp.Body.Close()
}

func unavailable(source, operation, message string, err error) error {
	return services.Wrap(services.ErrSourceUnavailable, source, operation, message, err)
}
