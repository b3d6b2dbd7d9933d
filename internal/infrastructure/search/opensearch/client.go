// Package opensearch provides full-text clause search.
package opensearch

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"

	"github.com/opensearch-project/opensearch-go/v3"
	"github.com/opensearch-project/opensearch-go/v3/opensearchapi"

	"github.com/clauselens/clauselens/internal/config"
	"github.com/clauselens/clauselens/internal/infrastructure/monitoring/logging"
	"github.com/clauselens/clauselens/pkg/errors"
)

// NewClient builds an OpenSearch API client from config and verifies the
// cluster is reachable.
func NewClient(ctx context.Context, cfg config.OpenSearchConfig, log logging.Logger) (*opensearchapi.Client, error) {
	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
	}
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	client, err := opensearchapi.NewClient(opensearchapi.Config{
		Client: opensearch.Config{
			Addresses:     cfg.Addresses,
			Username:      cfg.User,
			Password:      cfg.Password,
			Transport:     transport,
			MaxRetries:    3,
			RetryOnStatus: []int{429, 502, 503, 504},
			RetryBackoff:  func(int) time.Duration { return 100 * time.Millisecond },
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSearchFailed, "create opensearch client")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := client.Ping(pingCtx, nil); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSearchFailed, "opensearch unreachable")
	}

	log.Info("opensearch client connected", logging.Any("addresses", cfg.Addresses))
	return client, nil
}
