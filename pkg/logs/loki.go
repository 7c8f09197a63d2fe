package logs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/oveliahealth/ovelia_backend/config"
)

// lokiWriter ships each JSON log line to Loki's push API as a
// single-entry stream. Loki rejects out-of-order writes per stream, so
// the timestamp is taken at Write time.
type lokiWriter struct {
	endpoint string
	username string
	password string
	client   *http.Client
	stream   map[string]string
}

func newLokiHandler(cfg *config.Config, level slog.Level) slog.Handler {
	lc := cfg.Logging.Output.Loki
	w := &lokiWriter{
		endpoint: lc.Endpoint + "/loki/api/v1/push",
		username: lc.Username,
		password: lc.Password,
		client:   &http.Client{Timeout: 3 * time.Second},
		stream: map[string]string{
			"service": cfg.Observability.ServiceName,
			"env":     cfg.Server.Environment,
		},
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
}

type lokiPush struct {
	Streams []lokiStream `json:"streams"`
}

type lokiStream struct {
	Stream map[string]string `json:"stream"`
	Values [][2]string       `json:"values"`
}

func (w *lokiWriter) Write(p []byte) (int, error) {
	entry := [2]string{
		strconv.FormatInt(time.Now().UnixNano(), 10),
		string(bytes.TrimRight(p, "\n")),
	}
	body, err := json.Marshal(lokiPush{Streams: []lokiStream{{
		Stream: w.stream,
		Values: [][2]string{entry},
	}}})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequest(http.MethodPost, w.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if w.username != "" {
		req.SetBasicAuth(w.username, w.password)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return 0, fmt.Errorf("loki push: status %d", resp.StatusCode)
	}
	return len(p), nil
}
