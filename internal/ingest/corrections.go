package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/agenthands/histograph/internal/core/model"
	"github.com/agenthands/histograph/internal/validate"
)

// CorrectionSink receives forwarded correction records.
type CorrectionSink interface {
	Forward(ctx context.Context, kind model.FileKind, record json.RawMessage) error
}

// LogCorrectionSink writes forwarded records to the structured log.
type LogCorrectionSink struct {
	Logger *slog.Logger
}

func (s *LogCorrectionSink) Forward(ctx context.Context, kind model.FileKind, record json.RawMessage) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "correction", "type", string(kind), "record", string(record))
	return nil
}

// Corrections accepts user-submitted correction records. Records that fail
// the schema of their kind are the ones forwarded; records that pass are
// dropped.
type Corrections struct {
	Validator validate.Validator
	Sink      CorrectionSink
}

func NewCorrections(validator validate.Validator, sink CorrectionSink) *Corrections {
	return &Corrections{Validator: validator, Sink: sink}
}

// Accept takes a single JSON record or an array of records and returns how
// many were forwarded.
func (c *Corrections) Accept(ctx context.Context, kind model.FileKind, body []byte) (int, error) {
	records, err := splitRecords(body)
	if err != nil {
		return 0, err
	}

	forwarded := 0
	for _, raw := range records {
		var record interface{}
		if err := json.Unmarshal(raw, &record); err != nil {
			return forwarded, fmt.Errorf("failed to decode correction: %w", err)
		}
		if c.Validator.Validate(string(kind), record) == nil {
			continue
		}
		if err := c.Sink.Forward(ctx, kind, raw); err != nil {
			return forwarded, fmt.Errorf("failed to forward correction: %w", err)
		}
		forwarded++
	}
	return forwarded, nil
}

func splitRecords(body []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var records []json.RawMessage
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("failed to decode corrections: %w", err)
		}
		return records, nil
	}
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("failed to decode correction: invalid JSON")
	}
	return []json.RawMessage{trimmed}, nil
}
