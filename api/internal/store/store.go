package store

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"kisansight/api/internal/farm"
)

// Repository keeps completed predictions and diagnoses, newest first.
type Repository interface {
	SavePrediction(ctx context.Context, r farm.FarmReport) (farm.FarmReport, error)
	SaveDiagnosis(ctx context.Context, d farm.DiagnosisRecord) (farm.DiagnosisRecord, error)
	RecentPredictions(ctx context.Context, limit int) ([]farm.FarmReport, error)
	RecentDiagnoses(ctx context.Context, limit int) ([]farm.DiagnosisRecord, error)
	Ping(ctx context.Context) error
	Close() error
}

const (
	DefaultLimit = 20
	MaxLimit     = 200
)

// ClampLimit maps non-positive limits to DefaultLimit and caps at MaxLimit.
func ClampLimit(n int) int {
	if n <= 0 {
		return DefaultLimit
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}

var now = func() time.Time { return time.Now().UTC() }

func stampReport(r farm.FarmReport) farm.FarmReport {
	if strings.TrimSpace(r.ID) == "" {
		r.ID = uuid.NewString()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = now()
	}
	return r
}

func stampDiagnosis(d farm.DiagnosisRecord) farm.DiagnosisRecord {
	if strings.TrimSpace(d.ID) == "" {
		d.ID = uuid.NewString()
	}
	if d.Timestamp.IsZero() {
		d.Timestamp = now()
	}
	return d
}
