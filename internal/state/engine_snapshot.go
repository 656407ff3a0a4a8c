package state

import (
	"context"
	"encoding/json"
	"strings"
)

const EngineSnapshotKey = "engine:last_cycle"

// EngineSnapshot is the last cycle summary, kept for operators. It is not
// restored on start: a restarted engine always begins with an unset cursor.
type EngineSnapshot struct {
	Cycle       uint64 `json:"cycle"`
	Aborted     bool   `json:"aborted"`
	AbortReason string `json:"abort_reason,omitempty"`
	FillCursor  string `json:"fill_cursor"`
	SkewMS      int64  `json:"skew_ms"`
	FillsHedged int    `json:"fills_hedged"`
	Placed      int    `json:"placed"`
	AskSize     string `json:"ask_size"`
	BidSize     string `json:"bid_size"`
	UpdatedAtMS int64  `json:"updated_at_ms"`
}

func LoadEngineSnapshot(ctx context.Context, store Store) (EngineSnapshot, bool, error) {
	if store == nil {
		return EngineSnapshot{}, false, nil
	}
	raw, ok, err := store.Get(ctx, EngineSnapshotKey)
	if err != nil {
		return EngineSnapshot{}, false, err
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return EngineSnapshot{}, false, nil
	}
	var snapshot EngineSnapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return EngineSnapshot{}, false, err
	}
	return snapshot, true, nil
}

func SaveEngineSnapshot(ctx context.Context, store Store, snapshot EngineSnapshot) error {
	if store == nil {
		return nil
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return store.Set(ctx, EngineSnapshotKey, string(payload))
}
