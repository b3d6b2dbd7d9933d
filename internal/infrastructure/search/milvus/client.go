// Package milvus stores clause embeddings for similarity search.
package milvus

import (
	"context"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"

	"github.com/clauselens/clauselens/internal/config"
	"github.com/clauselens/clauselens/internal/infrastructure/monitoring/logging"
	"github.com/clauselens/clauselens/pkg/errors"
)

// NewClient connects to Milvus using the configured address and database.
func NewClient(ctx context.Context, cfg config.MilvusConfig, log logging.Logger) (client.Client, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	c, err := client.NewClient(dialCtx, client.Config{
		Address: cfg.Addr,
		DBName:  cfg.DBName,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeVectorStoreFailed, "connect to milvus")
	}

	log.Info("milvus client connected",
		logging.String("addr", cfg.Addr),
		logging.String("db", cfg.DBName),
	)
	return c, nil
}
