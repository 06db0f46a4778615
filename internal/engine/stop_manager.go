package engine

import (
	"math"

	"quick-flip-scalper/internal/types"
)

// stopManager derives the fixed stop and target of a trade and decides exits.
type stopManager struct {
	stopMult   float64 // stop distance in signal-bar ranges
	targetMult float64 // target distance in signal-bar ranges
	minTick    float64 // price increment; 0 disables rounding
}

func newStopManager(stopMult, targetMult, minTick float64) *stopManager {
	return &stopManager{stopMult: stopMult, targetMult: targetMult, minTick: minTick}
}

// levels returns stop and target for an entry at entry on a bar of size rng.
// Rounding never lets either level collapse onto the entry price.
func (sm *stopManager) levels(dir types.Direction, entry, rng float64) (stop, target float64) {
	sign := dir.Sign()
	stop = roundToTick(entry-sign*sm.stopMult*rng, sm.minTick)
	target = roundToTick(entry+sign*sm.targetMult*rng, sm.minTick)

	step := sm.minTick
	if step <= 0 {
		step = math.SmallestNonzeroFloat64
	}
	if sign*(entry-stop) <= 0 {
		stop = entry - sign*step
	}
	if sign*(target-entry) <= 0 {
		target = entry + sign*step
	}
	return stop, target
}

// checkExit evaluates bar against an open trade. When the bar reaches both
// the stop and the target, the stop wins.
func (sm *stopManager) checkExit(t *types.Trade, bar types.Bar) (types.TradeStatus, float64, bool) {
	var stopHit, targetHit bool
	if t.Direction == types.Long {
		stopHit = bar.Low <= t.StopPrice
		targetHit = bar.High >= t.TargetPrice
	} else {
		stopHit = bar.High >= t.StopPrice
		targetHit = bar.Low <= t.TargetPrice
	}

	switch {
	case stopHit:
		return types.StatusClosedLoss, t.StopPrice, true
	case targetHit:
		return types.StatusClosedWin, t.TargetPrice, true
	default:
		return types.StatusOpen, 0, false
	}
}

func roundToTick(x, tick float64) float64 {
	if tick <= 0 {
		return x
	}
	return math.Round(x/tick) * tick
}
