// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package repository stores recorded positions in Postgres.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/relabs-tech/gnss_positioning/internal/gnss"
)

// ConnectWithRetry opens a Postgres connection with retry.
func ConnectWithRetry(dsn string, attempts int, delay time.Duration) (*gorm.DB, error) {
	var lastErr error
	for i := 1; i <= attempts; i++ {
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
		if err == nil {
			if err := bootstrap(db); err != nil {
				return nil, err
			}
			return db, nil
		}

		lastErr = err
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("db connect failed after %d attempts: %w", attempts, lastErr)
}

func bootstrap(db *gorm.DB) error {
	return db.AutoMigrate(&PositionRecord{})
}

type PositionRepository struct {
	db *gorm.DB
}

func NewPositionRepository(db *gorm.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

func (r *PositionRepository) Insert(ctx context.Context, session uuid.UUID, ps ...gnss.Position) error {
	if len(ps) == 0 {
		return nil
	}
	rows := make([]PositionRecord, len(ps))
	for i, p := range ps {
		rows[i] = NewPositionRecord(session, p)
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

// Range returns the positions of session with from <= timestamp < to,
// oldest first.
func (r *PositionRepository) Range(ctx context.Context, session uuid.UUID, from, to time.Time) ([]gnss.Position, error) {
	var rows []PositionRecord
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND timestamp >= ? AND timestamp < ?", session, from.UnixMilli(), to.UnixMilli()).
		Order("timestamp").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]gnss.Position, 0, len(rows))
	for _, row := range rows {
		p, err := row.Position()
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row.ID, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// Sessions lists the recorded sessions, most recent first.
func (r *PositionRepository) Sessions(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&PositionRecord{}).
		Select("session_id").
		Group("session_id").
		Order("MAX(timestamp) DESC").
		Pluck("session_id", &ids).Error
	return ids, err
}
