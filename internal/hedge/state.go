package hedge

import (
	"time"

	"shadow-hedger/internal/market"
)

// ClockSkew is the offset between venue time and local time, fixed by the
// first tick ever observed.
type ClockSkew struct {
	offsetMS int64
	set      bool
}

func (s ClockSkew) Set() bool { return s.set }

func (s ClockSkew) OffsetMS() int64 { return s.offsetMS }

// Admit fixes the skew on its first call and admits that tick. Afterwards a
// tick is admitted only when its timestamp is not older than now + skew.
func (s *ClockSkew) Admit(tickMS int64, now time.Time) bool {
	nowMS := now.UnixMilli()
	if !s.set {
		s.offsetMS = tickMS - nowMS
		s.set = true
		return true
	}
	return tickMS >= nowMS+s.offsetMS
}

// State is everything the engine carries between cycles. Only the engine's
// worker mutates it.
type State struct {
	Skew   ClockSkew
	Cursor FillCursor
	// CursorSynced is set once the fill history has been read successfully;
	// until then reconciliation is skipped.
	CursorSynced bool
	Ladder       market.Ladder
	// LadderTS is the exchange timestamp of the depth tick behind Ladder.
	LadderTS int64
	Primary  Account
	Hedge    Account
	// AccountTS is the local time of the last complete account refresh.
	AccountTS time.Time
	Phase     Phase
	Cycles    uint64
}

// ApplyDepth replaces the cached ladder with the tick's.
func (s *State) ApplyDepth(tick market.Tick) {
	s.Ladder = market.Ladder{
		Asks: append([]market.Level(nil), tick.Asks...),
		Bids: append([]market.Level(nil), tick.Bids...),
	}
	s.LadderTS = tick.Timestamp
}

func limitDepth(tick market.Tick, levels int) market.Tick {
	if levels <= 0 {
		return tick
	}
	if len(tick.Asks) > levels {
		tick.Asks = tick.Asks[:levels]
	}
	if len(tick.Bids) > levels {
		tick.Bids = tick.Bids[:levels]
	}
	return tick
}

// CommitAccounts stores a refresh only once both venues answered.
func (s *State) CommitAccounts(snap AccountSnapshot, at time.Time) {
	s.Primary = snap.Primary
	s.Hedge = snap.Hedge
	s.AccountTS = at
}
