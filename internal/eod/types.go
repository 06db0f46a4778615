package eod

// summaryRow is one line of the EOD CSV.
type summaryRow struct {
	Group        string  `csv:"group"` // overall, pattern, symbol or bucket
	Key          string  `csv:"key"`
	Trades       int     `csv:"trades"`
	Wins         int     `csv:"wins"`
	Losses       int     `csv:"losses"`
	Timeouts     int     `csv:"timeouts"`
	WinRate      float64 `csv:"win_rate_pct"`
	GrossProfit  float64 `csv:"gross_profit"`
	GrossLoss    float64 `csv:"gross_loss"`
	NetPnL       float64 `csv:"net_pnl"`
	ProfitFactor float64 `csv:"profit_factor"`
	AvgWin       float64 `csv:"avg_win"`
	AvgLoss      float64 `csv:"avg_loss"`
	Expectancy   float64 `csv:"expectancy"`
}

func newRow(group, key string, s Stats) *summaryRow {
	return &summaryRow{
		Group:        group,
		Key:          key,
		Trades:       s.Trades,
		Wins:         s.Wins,
		Losses:       s.Losses,
		Timeouts:     s.Timeouts,
		WinRate:      round(s.WinRate, 2),
		GrossProfit:  round(s.GrossProfit, 4),
		GrossLoss:    round(s.GrossLoss, 4),
		NetPnL:       round(s.NetPnL, 4),
		ProfitFactor: round(s.ProfitFactor, 2),
		AvgWin:       round(s.AvgWin, 4),
		AvgLoss:      round(s.AvgLoss, 4),
		Expectancy:   round(s.Expectancy, 4),
	}
}
