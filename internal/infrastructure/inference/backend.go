// Package inference provides the HTTP client for the model serving endpoint
// that backs the risk and layout models.  The structuring engine treats every
// call as potentially failing, so this client reports errors rather than
// retrying; the engine's rule-based fallbacks handle the rest.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/clauselens/clauselens/internal/infrastructure/monitoring/logging"
	"github.com/clauselens/clauselens/internal/structuring/common"
	"github.com/clauselens/clauselens/pkg/errors"
)

// Backend calls a model serving endpoint over HTTP.  It implements
// common.ModelBackend for the structuring engine.
type Backend struct {
	baseURL string
	client  *http.Client
	log     logging.Logger
}

var _ common.ModelBackend = (*Backend)(nil)

// Config configures the inference backend.
type Config struct {
	// Addr is the serving endpoint base URL, e.g. "http://model-server:8500".
	Addr    string
	Timeout time.Duration
}

// NewBackend validates cfg and builds the client.  No connection is made
// until the first prediction.
func NewBackend(cfg Config, log logging.Logger) (*Backend, error) {
	if cfg.Addr == "" {
		return nil, errors.New(errors.ErrCodeValidation, "inference: serving address is required")
	}
	parsed, err := url.Parse(cfg.Addr)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, errors.Newf(errors.ErrCodeValidation, "inference: invalid serving address %q", cfg.Addr)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if log == nil {
		log = logging.NewNopLogger()
	}

	return &Backend{
		baseURL: strings.TrimSuffix(cfg.Addr, "/"),
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}, nil
}

// predictPayload is the wire format of the serving endpoint.
type predictPayload struct {
	ModelVersion string            `json:"model_version,omitempty"`
	Inputs       json.RawMessage   `json:"inputs"`
	OutputNames  []string          `json:"output_names,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

type predictReply struct {
	ModelName       string                     `json:"model_name"`
	ModelVersion    string                     `json:"model_version"`
	Outputs         map[string]json.RawMessage `json:"outputs"`
	InferenceTimeMs int64                      `json:"inference_time_ms"`
	Metadata        map[string]string          `json:"metadata,omitempty"`
}

// Predict posts the request to /v1/models/{name}/predict and decodes the
// reply.
func (b *Backend) Predict(ctx context.Context, req *common.PredictRequest) (*common.PredictResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "inference: invalid predict request")
	}

	payload, err := json.Marshal(predictPayload{
		ModelVersion: req.ModelVersion,
		Inputs:       req.InputData,
		OutputNames:  req.OutputNames,
		Metadata:     req.Metadata,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "inference: marshal predict request")
	}

	endpoint := fmt.Sprintf("%s/v1/models/%s/predict", b.baseURL, url.PathEscape(req.ModelName))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "inference: build predict request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "inference: predict call failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "inference: read predict response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf(errors.ErrCodeExternalService,
			"inference: model %s returned HTTP %d: %s", req.ModelName, resp.StatusCode, truncate(string(body), 200))
	}

	var reply predictReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "inference: decode predict response")
	}

	outputs := make(map[string][]byte, len(reply.Outputs))
	for name, raw := range reply.Outputs {
		outputs[name] = raw
	}
	inferenceMs := reply.InferenceTimeMs
	if inferenceMs == 0 {
		inferenceMs = time.Since(start).Milliseconds()
	}

	b.log.Debug("model prediction served",
		logging.String("model", req.ModelName),
		logging.Int64("inference_ms", inferenceMs),
	)
	return &common.PredictResponse{
		ModelName:       reply.ModelName,
		ModelVersion:    reply.ModelVersion,
		Outputs:         outputs,
		InferenceTimeMs: inferenceMs,
		Metadata:        reply.Metadata,
	}, nil
}

// Healthy probes the serving endpoint's health route.
func (b *Backend) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/v1/health", nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "inference: build health request")
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "inference: health call failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Newf(errors.ErrCodeExternalService, "inference: serving endpoint unhealthy: HTTP %d", resp.StatusCode)
	}
	return nil
}

// Close releases idle connections.
func (b *Backend) Close() error {
	b.client.CloseIdleConnections()
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
