// Package reporter implements the core.Reporter observability sink: every
// pass/reject decision is logged as a structured event and, optionally,
// persisted so a ring of recent decisions survives process restarts.
package reporter

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/tidwall/buntdb"
	"gorm.io/gorm"

	"github.com/raykavin/backnrun/core"
	"github.com/raykavin/backnrun/logger"
)

// ringKey zero-pads the id so lexicographic key order (buntdb's default
// Ascend order) matches numeric/insertion order.
func ringKey(id int64) string {
	return fmt.Sprintf("%020d", id)
}

// Reporter fans a core.DecisionRecord out to a structured logger and,
// when configured with a store, a bounded ring of recent records kept for
// post-mortem inspection. This is analytics persistence scoped to the
// decision trail, not the broker's system-of-record state.
type Reporter struct {
	log    logger.Logger
	store  *buntdb.DB
	cap    int
	lastID int64
	sql    *gorm.DB
}

// Option configures a Reporter at construction.
type Option func(*Reporter)

// WithStore attaches a buntdb-backed ring buffer of the last capacity
// records, grounded on storage/buntdb.go's NewBuntStorage/CreateOrder
// idiom (JSON-marshaled value per incrementing key).
func WithStore(db *buntdb.DB, capacity int) Option {
	return func(r *Reporter) {
		r.store = db
		r.cap = capacity
	}
}

// decisionRow is core.DecisionRecord's gorm-mapped projection for the
// optional SQL sink.
type decisionRow struct {
	ID             uint `gorm:"primarykey"`
	Timestamp      time.Time `gorm:"index"`
	SignalKind     string
	Regime         string
	Decision       string
	RejectReason   string
	AccountEquity  float64
	PositionCount  int
	SentimentLabel string
	SentimentConf  float64
}

func toRow(rec core.DecisionRecord) decisionRow {
	return decisionRow{
		Timestamp:      rec.Timestamp,
		SignalKind:     rec.SignalKind,
		Regime:         string(rec.Regime),
		Decision:       rec.Decision,
		RejectReason:   rec.RejectReason,
		AccountEquity:  rec.AccountEquity,
		PositionCount:  rec.PositionCount,
		SentimentLabel: string(rec.SentimentLabel),
		SentimentConf:  rec.SentimentConf,
	}
}

// WithSQLStore attaches a gorm-backed SQL sink, grounded on
// storage/sql.go's newFromSQL/AutoMigrate idiom. db must already have
// AutoMigrate(&decisionRow{}) available to it; New calls it itself.
func WithSQLStore(db *gorm.DB) Option {
	return func(r *Reporter) { r.sql = db }
}

// New returns a Reporter that logs through log.
func New(log logger.Logger, opts ...Option) *Reporter {
	r := &Reporter{log: log, cap: 1000}
	for _, opt := range opts {
		opt(r)
	}
	if r.sql != nil {
		if err := r.sql.AutoMigrate(&decisionRow{}); err != nil {
			log.WithError(err).Error("failed to migrate decision_rows table, disabling SQL sink")
			r.sql = nil
		}
	}
	return r
}

// Record implements core.Reporter.
func (r *Reporter) Record(ctx context.Context, rec core.DecisionRecord) {
	entry := r.log.WithFields(map[string]any{
		"signal":    rec.SignalKind,
		"regime":    string(rec.Regime),
		"decision":  rec.Decision,
		"equity":    rec.AccountEquity,
		"positions": rec.PositionCount,
	})
	if rec.RejectReason != "" {
		entry = entry.WithField("reject_reason", rec.RejectReason)
	}
	if rec.Decision == "reject" {
		entry.Warn("signal evaluated")
	} else {
		entry.Info("signal evaluated")
	}

	if r.store != nil {
		if err := r.persist(rec); err != nil {
			r.log.WithError(err).Error("failed to persist decision record")
		}
	}
	if r.sql != nil {
		row := toRow(rec)
		if result := r.sql.WithContext(ctx).Create(&row); result.Error != nil {
			r.log.WithError(result.Error).Error("failed to persist decision record to SQL sink")
		}
	}
}

// RecentSQL returns the most recent limit decision records from the SQL
// sink, newest last. Returns nil, nil when no SQL sink is configured.
func (r *Reporter) RecentSQL(ctx context.Context, limit int) ([]core.DecisionRecord, error) {
	if r.sql == nil {
		return nil, nil
	}
	var rows []decisionRow
	if result := r.sql.WithContext(ctx).Order("timestamp desc").Limit(limit).Find(&rows); result.Error != nil {
		return nil, fmt.Errorf("query decision rows: %w", result.Error)
	}
	out := make([]core.DecisionRecord, len(rows))
	for i := range rows {
		row := rows[len(rows)-1-i] // newest-last, matching Recent's insertion order
		out[i] = core.DecisionRecord{
			Timestamp:      row.Timestamp,
			SignalKind:     row.SignalKind,
			Regime:         core.RegimeLabel(row.Regime),
			Decision:       row.Decision,
			RejectReason:   row.RejectReason,
			AccountEquity:  row.AccountEquity,
			PositionCount:  row.PositionCount,
			SentimentLabel: core.SentimentLabel(row.SentimentLabel),
			SentimentConf:  row.SentimentConf,
		}
	}
	return out, nil
}

func (r *Reporter) persist(rec core.DecisionRecord) error {
	return r.store.Update(func(tx *buntdb.Tx) error {
		id := atomic.AddInt64(&r.lastID, 1)

		content, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal decision record: %w", err)
		}

		key := ringKey(id)
		if _, _, err := tx.Set(key, string(content), nil); err != nil {
			return fmt.Errorf("store decision record: %w", err)
		}

		if r.cap <= 0 {
			return nil
		}
		if id <= int64(r.cap) {
			return nil
		}
		_, err = tx.Delete(ringKey(id - int64(r.cap)))
		if err != nil && err != buntdb.ErrNotFound {
			return fmt.Errorf("evict decision record: %w", err)
		}
		return nil
	})
}

// Recent returns the up-to-capacity most recently persisted records, in
// insertion order. Returns an empty slice when no store is configured.
func (r *Reporter) Recent() ([]core.DecisionRecord, error) {
	if r.store == nil {
		return nil, nil
	}
	var out []core.DecisionRecord
	err := r.store.View(func(tx *buntdb.Tx) error {
		return tx.Ascend("", func(key, value string) bool {
			var rec core.DecisionRecord
			if err := json.Unmarshal([]byte(value), &rec); err == nil {
				out = append(out, rec)
			}
			return true
		})
	})
	if err != nil {
		return nil, fmt.Errorf("scan decision records: %w", err)
	}
	return out, nil
}
