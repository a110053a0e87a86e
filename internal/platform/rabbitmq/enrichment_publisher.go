package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// EnrichmentJob asks a worker to fill in the summary and questions of a
// stored document.
type EnrichmentJob struct {
	DocumentID uint   `json:"document_id"`
	UserID     uint   `json:"user_id"`
	RequestID  string `json:"request_id,omitempty"`
}

type EnrichmentPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewEnrichmentPublisher(conn *amqp.Connection, queueName string) *EnrichmentPublisher {
	return &EnrichmentPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *EnrichmentPublisher) PublishEnrichment(ctx context.Context, job EnrichmentJob) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	if _, err := DeclareQueue(ch, p.queueName); err != nil {
		return err
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal enrichment job failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:   "application/json",
			Body:          payload,
			DeliveryMode:  amqp.Persistent,
			CorrelationId: job.RequestID,
		},
	); err != nil {
		return fmt.Errorf("publish enrichment job failed: %w", err)
	}
	return nil
}

// DeclareQueue declares the durable queue shared by publisher and worker.
func DeclareQueue(ch *amqp.Channel, name string) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(
		name,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return amqp.Queue{}, fmt.Errorf("declare queue failed: %w", err)
	}
	return q, nil
}

// DecodeEnrichmentJob parses a delivery body.
func DecodeEnrichmentJob(body []byte) (EnrichmentJob, error) {
	var job EnrichmentJob
	if err := json.Unmarshal(body, &job); err != nil {
		return EnrichmentJob{}, fmt.Errorf("unmarshal enrichment job failed: %w", err)
	}
	if job.DocumentID == 0 {
		return EnrichmentJob{}, fmt.Errorf("enrichment job without document id")
	}
	return job, nil
}
