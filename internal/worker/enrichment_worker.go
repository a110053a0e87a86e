package worker

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"studybuddy/internal/pkg/logger"
	"studybuddy/internal/pkg/reqctx"
	"studybuddy/internal/platform/rabbitmq"
)

// Enricher fills in the summary and suggested questions of a document.
// MarkFailed records that enrichment was given up on.
type Enricher interface {
	Enrich(ctx context.Context, documentID uint) error
	MarkFailed(ctx context.Context, documentID uint) error
}

type outcome int

const (
	ack outcome = iota
	requeue
	drop
)

type EnrichmentWorker struct {
	conn      *amqp.Connection
	enricher  Enricher
	queueName string
	log       *logger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewEnrichmentWorker(conn *amqp.Connection, enricher Enricher, queueName string, log *logger.Logger) *EnrichmentWorker {
	if log == nil {
		log = logger.Nop()
	}
	return &EnrichmentWorker{
		conn:      conn,
		enricher:  enricher,
		queueName: queueName,
		log:       log.With("component", "worker.EnrichmentWorker"),
	}
}

func (w *EnrichmentWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}
	if _, err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}
	// Enrichment makes several model calls; take one job at a time.
	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					w.log.Warn("enrichment deliveries closed")
					return
				}
				switch w.handle(workerCtx, d.Body, d.Redelivered) {
				case ack:
					_ = d.Ack(false)
				case requeue:
					_ = d.Nack(false, true)
				default:
					_ = d.Nack(false, false)
				}
			}
		}
	}()

	w.log.Info("enrichment worker started", "queue", w.queueName)
	return nil
}

// handle processes one job body. A failed job is requeued once; a job that
// fails on redelivery is marked failed and dropped, as is one that cannot be
// decoded.
func (w *EnrichmentWorker) handle(ctx context.Context, body []byte, redelivered bool) outcome {
	job, err := rabbitmq.DecodeEnrichmentJob(body)
	if err != nil {
		w.log.Error("decode enrichment job failed", "error", err)
		return drop
	}

	ctx = reqctx.With(ctx, &reqctx.Data{RequestID: job.RequestID, UserID: job.UserID})
	if err := w.enricher.Enrich(ctx, job.DocumentID); err != nil {
		w.log.Error("enrich document failed",
			"error_id", job.RequestID,
			"document_id", job.DocumentID,
			"redelivered", redelivered,
			"error", err,
		)
		if redelivered {
			if err := w.enricher.MarkFailed(ctx, job.DocumentID); err != nil {
				w.log.Error("mark enrichment failed", "document_id", job.DocumentID, "error", err)
			}
			return drop
		}
		return requeue
	}
	w.log.Info("document enriched", "request_id", job.RequestID, "document_id", job.DocumentID)
	return ack
}

func (w *EnrichmentWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
