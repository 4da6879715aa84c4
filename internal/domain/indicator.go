package domain

// IndicatorSet is a snapshot of named numeric indicators for one
// (symbol, timeframe) pair. Recomputed on demand; not a source of truth.
// A nil pointer field means "missing" — indicators are never zero-filled
// when history is insufficient.
type IndicatorSet struct {
	Symbol    string    `json:"symbol"`
	Timeframe Timeframe `json:"timeframe"`

	EMA9   *float64 `json:"ema9,omitempty"`
	EMA20  *float64 `json:"ema20,omitempty"`
	EMA50  *float64 `json:"ema50,omitempty"`
	EMA200 *float64 `json:"ema200,omitempty"`

	VWAP *float64 `json:"vwap,omitempty"`

	PriorHigh20 *float64 `json:"prior_high20,omitempty"`
	PriorLow20  *float64 `json:"prior_low20,omitempty"`

	ATR14 *float64 `json:"atr14,omitempty"`

	OBVSlope *float64 `json:"obv_slope,omitempty"`

	RelVol     *float64 `json:"rel_vol,omitempty"`
	ThinVolume bool     `json:"thin_volume"`
}

func f(v float64) *float64 { return &v }

// Get returns the named indicator's value and whether it is present.
func (s IndicatorSet) Get(name string) (float64, bool) {
	var p *float64
	switch name {
	case "EMA9":
		p = s.EMA9
	case "EMA20":
		p = s.EMA20
	case "EMA50":
		p = s.EMA50
	case "EMA200":
		p = s.EMA200
	case "VWAP":
		p = s.VWAP
	case "PriorHigh20":
		p = s.PriorHigh20
	case "PriorLow20":
		p = s.PriorLow20
	case "ATR14":
		p = s.ATR14
	case "OBVSlope":
		p = s.OBVSlope
	case "RelVol":
		p = s.RelVol
	default:
		return 0, false
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}
