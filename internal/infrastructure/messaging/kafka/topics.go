package kafka

import (
	"context"
	"net"
	"strconv"

	"github.com/segmentio/kafka-go"

	"github.com/clauselens/clauselens/internal/config"
	"github.com/clauselens/clauselens/internal/domain/contract"
	"github.com/clauselens/clauselens/internal/infrastructure/monitoring/logging"
	"github.com/clauselens/clauselens/pkg/errors"
)

// ContractTopics lists every topic the service produces or consumes.
func ContractTopics() []string {
	return []string{
		contract.TopicContractUploaded,
		contract.TopicContractAnalyzed,
		contract.TopicContractFailed,
	}
}

// EnsureTopics creates the contract topics on the cluster controller.
// Existing topics are left untouched.
func EnsureTopics(ctx context.Context, cfg config.KafkaConfig, log logging.Logger) error {
	if len(cfg.Brokers) == 0 {
		return errors.New(errors.ErrCodeEventPublishFailed, "no kafka brokers configured")
	}

	conn, err := kafka.DialContext(ctx, "tcp", cfg.Brokers[0])
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeEventPublishFailed, "dial kafka broker")
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeEventPublishFailed, "resolve cluster controller")
	}
	controllerConn, err := kafka.DialContext(ctx, "tcp",
		net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeEventPublishFailed, "dial cluster controller")
	}
	defer controllerConn.Close()

	partitions := cfg.NumPartitions
	if partitions <= 0 {
		partitions = 3
	}
	replication := cfg.ReplicationFactor
	if replication <= 0 {
		replication = 1
	}

	configs := make([]kafka.TopicConfig, 0, len(ContractTopics()))
	for _, topic := range ContractTopics() {
		configs = append(configs, kafka.TopicConfig{
			Topic:             topic,
			NumPartitions:     partitions,
			ReplicationFactor: replication,
		})
	}
	if err := controllerConn.CreateTopics(configs...); err != nil {
		return errors.Wrap(err, errors.ErrCodeEventPublishFailed, "create topics")
	}

	log.Info("kafka topics ensured",
		logging.Int("topics", len(configs)),
		logging.Int("partitions", partitions),
	)
	return nil
}
