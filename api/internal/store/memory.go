package store

import (
	"context"
	"sync"

	"kisansight/api/internal/farm"
)

// Memory is a bounded in-process history used when no database is configured.
// The oldest records are dropped once capacity is reached.
type Memory struct {
	mu        sync.RWMutex
	capacity  int
	reports   []farm.FarmReport
	diagnoses []farm.DiagnosisRecord
}

func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = MaxLimit
	}
	return &Memory{capacity: capacity}
}

func (m *Memory) SavePrediction(_ context.Context, r farm.FarmReport) (farm.FarmReport, error) {
	r = stampReport(r)
	m.mu.Lock()
	m.reports = pushBounded(m.reports, r, m.capacity)
	m.mu.Unlock()
	return r, nil
}

func (m *Memory) SaveDiagnosis(_ context.Context, d farm.DiagnosisRecord) (farm.DiagnosisRecord, error) {
	d = stampDiagnosis(d)
	m.mu.Lock()
	m.diagnoses = pushBounded(m.diagnoses, d, m.capacity)
	m.mu.Unlock()
	return d, nil
}

func (m *Memory) RecentPredictions(_ context.Context, limit int) ([]farm.FarmReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return newestFirst(m.reports, ClampLimit(limit)), nil
}

func (m *Memory) RecentDiagnoses(_ context.Context, limit int) ([]farm.DiagnosisRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return newestFirst(m.diagnoses, ClampLimit(limit)), nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

func pushBounded[T any](s []T, v T, capacity int) []T {
	s = append(s, v)
	if over := len(s) - capacity; over > 0 {
		s = append(s[:0:0], s[over:]...)
	}
	return s
}

func newestFirst[T any](s []T, limit int) []T {
	if limit > len(s) {
		limit = len(s)
	}
	out := make([]T, 0, limit)
	for i := len(s) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s[i])
	}
	return out
}
