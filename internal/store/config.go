package store

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrConfiguration marks a malformed configuration. It is only ever returned at
// initialization time.
var ErrConfiguration = errors.New("configuration error")

type Config struct {
	Mode       string   `yaml:"mode"`
	DataSource string   `yaml:"data_source"`
	Exchange   string   `yaml:"exchange"`
	Universe   []string `yaml:"universe"`
	Session    struct {
		Timezone string `yaml:"timezone"`
		Start    string `yaml:"start"`
		End      string `yaml:"end"`
	} `yaml:"session"`
	Policy struct {
		Allowed         []string `yaml:"allowed"`
		Disallowed      []string `yaml:"disallowed"`
		Patterns        []string `yaml:"patterns"`
		MaxTradesPerDay int      `yaml:"max_trades_per_day"`
	} `yaml:"policy"`
	Pattern struct {
		MaxBodyRatio        float64  `yaml:"max_body_ratio"`
		WickRatio           float64  `yaml:"wick_ratio"`
		OppositeWickRatio   *float64 `yaml:"opposite_wick_ratio"` // nil means 1.0; 0 forbids an opposite wick
		WickStrengthScale   float64  `yaml:"wick_strength_scale"`
		EngulfStrengthScale float64  `yaml:"engulf_strength_scale"`
	} `yaml:"pattern"`
	Volatility struct {
		Method string  `yaml:"method"`
		Period int     `yaml:"period"`
		MinATR float64 `yaml:"min_atr"`
	} `yaml:"volatility"`
	Risk struct {
		StopRangeMult   float64 `yaml:"stop_range_mult"`
		TargetRangeMult float64 `yaml:"target_range_mult"`
		MinTick         float64 `yaml:"min_tick"`
		Quantity        int     `yaml:"quantity"`
	} `yaml:"risk"`
	Buffer struct {
		Lookback int `yaml:"lookback"`
	} `yaml:"buffer"`
	Feed struct {
		CSVPath          string            `yaml:"csv_path"`
		IntervalMinutes  int               `yaml:"interval_minutes"`
		InstrumentTokens map[string]uint32 `yaml:"instrument_tokens"`
		Seed             int64             `yaml:"seed"`
	} `yaml:"feed"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Log struct {
		Dir           string `yaml:"dir"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"log"`
}

// Default returns a configuration with every default applied. The session is
// 09:45-10:45 New York time, the window the scalper was tuned on.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = "DRY_RUN"
	}
	if c.DataSource == "" {
		c.DataSource = "STATIC"
	}
	if c.Exchange == "" {
		c.Exchange = "NSE"
	}
	if c.Session.Timezone == "" {
		c.Session.Timezone = "America/New_York"
	}
	if c.Session.Start == "" {
		c.Session.Start = "09:45"
	}
	if c.Session.End == "" {
		c.Session.End = "10:45"
	}
	if c.Pattern.MaxBodyRatio == 0 {
		c.Pattern.MaxBodyRatio = 0.3
	}
	if c.Pattern.WickRatio == 0 {
		c.Pattern.WickRatio = 2.0
	}
	if c.Pattern.OppositeWickRatio == nil {
		r := 1.0
		c.Pattern.OppositeWickRatio = &r
	}
	if c.Pattern.WickStrengthScale == 0 {
		c.Pattern.WickStrengthScale = 4.0
	}
	if c.Pattern.EngulfStrengthScale == 0 {
		c.Pattern.EngulfStrengthScale = 2.0
	}
	if c.Volatility.Method == "" {
		c.Volatility.Method = "SIMPLE"
	}
	if c.Volatility.Period == 0 {
		c.Volatility.Period = 3
	}
	if c.Risk.StopRangeMult == 0 {
		c.Risk.StopRangeMult = 1.0
	}
	if c.Risk.TargetRangeMult == 0 {
		c.Risk.TargetRangeMult = 1.5
	}
	if c.Risk.Quantity == 0 {
		c.Risk.Quantity = 1
	}
	if c.Buffer.Lookback == 0 {
		c.Buffer.Lookback = 5
	}
	if c.Feed.IntervalMinutes == 0 {
		c.Feed.IntervalMinutes = 5
	}
	if c.Log.Dir == "" {
		c.Log.Dir = "logs"
	}
}

func (c *Config) Validate() error {
	if c.Mode != "DRY_RUN" && c.Mode != "LIVE" {
		return configErr("invalid mode '%s': must be 'DRY_RUN' or 'LIVE'", c.Mode)
	}
	if c.DataSource != "STATIC" && c.DataSource != "CSV" && c.DataSource != "LIVE" {
		return configErr("invalid data_source '%s': must be 'STATIC', 'CSV' or 'LIVE'", c.DataSource)
	}
	if _, err := time.LoadLocation(c.Session.Timezone); err != nil {
		return configErr("session.timezone %q: %v", c.Session.Timezone, err)
	}
	start, err := ParseClock(c.Session.Start)
	if err != nil {
		return configErr("session.start: %v", err)
	}
	end, err := ParseClock(c.Session.End)
	if err != nil {
		return configErr("session.end: %v", err)
	}
	if start >= end {
		return configErr("session.start %s must be before session.end %s", c.Session.Start, c.Session.End)
	}
	for _, p := range c.Policy.Patterns {
		switch p {
		case "hammer", "inverted_hammer", "bullish_engulfing", "bearish_engulfing":
		default:
			return configErr("policy.patterns: unknown pattern %q", p)
		}
	}
	if c.Policy.MaxTradesPerDay < 0 {
		return configErr("policy.max_trades_per_day must be >= 0, got %d", c.Policy.MaxTradesPerDay)
	}
	if c.Pattern.MaxBodyRatio <= 0 || c.Pattern.MaxBodyRatio > 1 {
		return configErr("pattern.max_body_ratio must be in (0,1], got %.2f", c.Pattern.MaxBodyRatio)
	}
	if c.Pattern.WickRatio <= 0 || c.OppositeWick() < 0 {
		return configErr("pattern wick ratios must be positive")
	}
	if c.Pattern.WickStrengthScale <= 0 || c.Pattern.EngulfStrengthScale <= 0 {
		return configErr("pattern strength scales must be positive")
	}
	if m := strings.ToUpper(c.Volatility.Method); m != "SIMPLE" && m != "WILDER" {
		return configErr("volatility.method must be 'SIMPLE' or 'WILDER', got '%s'", c.Volatility.Method)
	}
	if c.Volatility.Period < 1 || c.Volatility.MinATR < 0 {
		return configErr("volatility.period must be >= 1 and volatility.min_atr >= 0")
	}
	if c.Risk.StopRangeMult <= 0 || c.Risk.TargetRangeMult <= 0 {
		return configErr("risk range multipliers must be positive, got stop=%.2f target=%.2f", c.Risk.StopRangeMult, c.Risk.TargetRangeMult)
	}
	if c.Risk.MinTick < 0 {
		return configErr("risk.min_tick must be >= 0")
	}
	if c.Buffer.Lookback < 2 {
		return configErr("buffer.lookback must be >= 2 for two-bar patterns, got %d", c.Buffer.Lookback)
	}
	// the gate sees at most lookback bars; Wilder smoothing needs one more than period
	if c.Volatility.MinATR > 0 {
		need := c.Volatility.Period
		if strings.ToUpper(c.Volatility.Method) == "WILDER" {
			need++
		}
		if need > c.Buffer.Lookback {
			return configErr("volatility.period %d (%s) needs %d bars but buffer.lookback is %d",
				c.Volatility.Period, c.Volatility.Method, need, c.Buffer.Lookback)
		}
	}
	return nil
}

func configErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// OppositeWick returns pattern.opposite_wick_ratio, 1.0 when unset.
func (c *Config) OppositeWick() float64 {
	if c.Pattern.OppositeWickRatio == nil {
		return 1.0
	}
	return *c.Pattern.OppositeWickRatio
}

// Location returns the session timezone. Validate must have passed.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Session.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ParseClock parses "HH:MM" into an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q, want HH:MM", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}
