// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package weather

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"
)

// Query records one answered lookup.
type Query struct {
	City        string
	Country     string
	Temperature float64
	Description string
	Units       Units
	ContextID   string
	CreatedAt   time.Time
}

// History stores answered lookups.
type History interface {
	Save(ctx context.Context, q Query) error

	// Recent returns up to limit queries, newest first. A non-empty city
	// restricts the result to cities containing it, ignoring case.
	Recent(ctx context.Context, city string, limit int) ([]Query, error)
}

// MemoryHistory is an in-memory [History].
type MemoryHistory struct {
	mu      sync.Mutex
	queries []Query
}

var _ History = (*MemoryHistory)(nil)

// NewMemoryHistory creates an empty [MemoryHistory].
func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{}
}

// Save implements [History].
func (h *MemoryHistory) Save(_ context.Context, q Query) error {
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now()
	}
	h.mu.Lock()
	h.queries = append(h.queries, q)
	h.mu.Unlock()
	return nil
}

// Recent implements [History].
func (h *MemoryHistory) Recent(_ context.Context, city string, limit int) ([]Query, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	city = strings.ToLower(city)
	var out []Query
	for _, q := range slices.Backward(h.queries) {
		if len(out) == limit {
			break
		}
		if city != "" && !strings.Contains(strings.ToLower(q.City), city) {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

// QueryModel is the weather_queries row of [DatabaseHistory].
type QueryModel struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	City        string `gorm:"not null;index"`
	Country     string
	QueryType   string `gorm:"not null"`
	Temperature float64
	Description string
	Units       string
	ContextID   string    `gorm:"index"`
	CreatedAt   time.Time `gorm:"index"`
}

// TableName implements gorm's tabler.
func (QueryModel) TableName() string { return "weather_queries" }

// queryTypeCurrent marks a current-conditions lookup.
const queryTypeCurrent = "current"

// DatabaseHistory is a [History] backed by GORM.
type DatabaseHistory struct {
	db *gorm.DB
}

var _ History = (*DatabaseHistory)(nil)

// NewDatabaseHistory creates a [DatabaseHistory] over db.
func NewDatabaseHistory(db *gorm.DB) (*DatabaseHistory, error) {
	if db == nil {
		return nil, errors.New("database connection cannot be nil")
	}
	return &DatabaseHistory{db: db}, nil
}

// Initialize creates or migrates the weather_queries table.
func (h *DatabaseHistory) Initialize(ctx context.Context) error {
	if err := h.db.WithContext(ctx).AutoMigrate(&QueryModel{}); err != nil {
		return fmt.Errorf("migrate weather history: %w", err)
	}
	return nil
}

// Save implements [History].
func (h *DatabaseHistory) Save(ctx context.Context, q Query) error {
	model := &QueryModel{
		City:        q.City,
		Country:     q.Country,
		QueryType:   queryTypeCurrent,
		Temperature: q.Temperature,
		Description: q.Description,
		Units:       string(q.Units),
		ContextID:   q.ContextID,
		CreatedAt:   q.CreatedAt,
	}
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now()
	}
	if err := h.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("save weather query: %w", err)
	}
	return nil
}

// Recent implements [History].
func (h *DatabaseHistory) Recent(ctx context.Context, city string, limit int) ([]Query, error) {
	tx := h.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit)
	if city != "" {
		tx = tx.Where("LOWER(city) LIKE ?", "%"+strings.ToLower(city)+"%")
	}

	var models []QueryModel
	if err := tx.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list weather queries: %w", err)
	}

	out := make([]Query, 0, len(models))
	for _, m := range models {
		out = append(out, Query{
			City:        m.City,
			Country:     m.Country,
			Temperature: m.Temperature,
			Description: m.Description,
			Units:       Units(m.Units),
			ContextID:   m.ContextID,
			CreatedAt:   m.CreatedAt,
		})
	}
	return out, nil
}
