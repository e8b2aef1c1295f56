package contracts

import (
	"context"
)

// Source produces the raw dataset (Extract)
// ⭐ SSOT: 추출 인터페이스
type Source interface {
	Extract(ctx context.Context) (*RawTable, error)
}

// Normalizer maps a raw dataset to canonical records (Transform)
type Normalizer interface {
	Normalize(table *RawTable) ([]SalesRecord, *TransformSummary, error)
}

// PartitionLoader replaces the staging and cleaned partitions (Load)
type PartitionLoader interface {
	Load(ctx context.Context, records []SalesRecord) (*LoadSummary, error)
}

// QualityGate evaluates today's cleaned partition
type QualityGate interface {
	Evaluate(ctx context.Context) (*CheckOutcome, error)
}

// Notifier delivers an alert message over whatever channels are configured
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// OutcomePublisher receives every quality outcome, e.g. to stream it to clients
type OutcomePublisher interface {
	Publish(outcome *CheckOutcome)
}
