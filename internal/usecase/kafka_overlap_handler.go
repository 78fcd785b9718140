package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"AstroOverlap/internal/domain/models"
	domrepo "AstroOverlap/internal/domain/repository"
	xhttp "AstroOverlap/pkg/http"
	pkgkafka "AstroOverlap/pkg/kafka"
	applogger "AstroOverlap/pkg/logger"
)

// OverlapComputer is the part of OverlapEngine the transports depend on.
type OverlapComputer interface {
	ComputeOverlap(ctx context.Context, req *models.OverlapRequest) (*models.OverlapResult, error)
}

// KafkaOverlapHandler answers overlap requests arriving on a Kafka topic.
//
// Malformed payloads are permanent failures and go straight to the DLQ.
// Requests the engine rejects are answered with an error response. System
// failures are returned so the consumer retries them.
type KafkaOverlapHandler struct {
	topic     string
	engine    OverlapComputer
	publisher domrepo.ResultPublisher
	metrics   domrepo.Metrics
	logger    *applogger.Logger
}

func NewKafkaOverlapHandler(topic string, engine OverlapComputer, publisher domrepo.ResultPublisher, metrics domrepo.Metrics, logger *applogger.Logger) *KafkaOverlapHandler {
	if logger == nil {
		logger = applogger.Nop()
	}
	return &KafkaOverlapHandler{
		topic:     topic,
		engine:    engine,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger.With(applogger.String("component", "kafka_overlap_handler")),
	}
}

func (h *KafkaOverlapHandler) Topic() string { return h.topic }

func (h *KafkaOverlapHandler) Handle(ctx context.Context, b []byte) error {
	var req models.OverlapRequest
	if err := json.Unmarshal(b, &req); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return pkgkafka.Permanent(fmt.Errorf("decode overlap request: %w", err))
	}
	if req.ID == "" {
		req.ID = pkgkafka.RequestID(ctx)
	}

	if err := xhttp.Validate(ctx, &req); err != nil {
		h.metrics.RecordError("invalid_request")
		return h.reply(ctx, &models.OverlapResponse{ID: req.ID, Error: err.Error()})
	}

	start := time.Now()
	res, err := h.engine.ComputeOverlap(ctx, &req)
	h.metrics.RecordLatency("kafka_overlap", time.Since(start).Seconds())
	switch {
	case err == nil:
		return h.reply(ctx, &models.OverlapResponse{ID: req.ID, Result: res})
	case IsRequestError(err):
		h.logger.Warn("overlap request rejected",
			applogger.String("id", req.ID),
			applogger.Error(err),
		)
		return h.reply(ctx, &models.OverlapResponse{ID: req.ID, Error: err.Error()})
	case errors.Is(err, context.Canceled):
		return err
	default:
		h.logger.Error("overlap request failed",
			applogger.String("id", req.ID),
			applogger.Error(err),
		)
		return err
	}
}

func (h *KafkaOverlapHandler) reply(ctx context.Context, resp *models.OverlapResponse) error {
	if err := h.publisher.Publish(ctx, resp); err != nil {
		h.metrics.RecordError("publish_result")
		return fmt.Errorf("publish overlap response %s: %w", resp.ID, err)
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaOverlapHandler)(nil)
