// Package scoring implements the deterministic momentum state machine,
// its hard gates, and the decision mapping to an actionable signal.
package scoring

import "momentum-engine/internal/domain"

// signals is the boolean transition-input vector evaluated at one step of
// the state-machine replay.
type signals struct {
	trendUp5m          bool
	trendUp15m         bool
	structureIntact15m bool
	aboveVWAP          bool
	obvConfirm         bool
	breakdown5m        bool
	breakdown15m       bool
}

// nextState applies the transition table in priority order; the first
// matching row wins.
func nextState(prev domain.State, s signals) domain.State {
	switch {
	case s.breakdown15m && s.breakdown5m:
		return domain.StateFailed
	case s.breakdown5m && !s.breakdown15m:
		return domain.StateFailing
	case prev == domain.StateFailing && s.trendUp5m && !s.breakdown5m:
		return domain.StateBuilding
	case s.trendUp15m && s.trendUp5m && s.structureIntact15m && s.aboveVWAP && s.obvConfirm:
		return domain.StateActive
	case s.trendUp15m && (s.trendUp5m != s.aboveVWAP):
		return domain.StateBuilding
	case prev == domain.StateActive && !s.trendUp5m && !s.breakdown5m:
		return domain.StatePause
	case prev == domain.StatePause && s.trendUp5m && s.aboveVWAP:
		return domain.StateActive
	default:
		return domain.StateNoMomo
	}
}
