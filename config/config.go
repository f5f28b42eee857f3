// Package config loads every §6 setting through viper, grounded on
// examples/trend_master/internal/config/config.go's AutomaticEnv idiom for
// ambient options (defaults come from seeding the target with Default(),
// not viper SetDefault calls) and its LoadStrategyConfig/saveDefaultConfig
// pattern (read a YAML file, fall back to a generated default) for the
// deeply nested strategy/engine configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/raykavin/backnrun/core"
)

// DefaultConfigPath mirrors the teacher's DefaultConfigPath constant.
const DefaultConfigPath = "./backnrun.yaml"

// FileConfig is the on-disk/env-sourced mirror of core.Settings plus the
// ambient options (logging, storage, notification, broker selection) that
// core.Settings intentionally does not own (§3: core stays free of I/O
// concerns).
type FileConfig struct {
	Symbol     string           `mapstructure:"symbol"`
	Timeframes TimeframesConfig `mapstructure:"timeframes"`
	Regime     RegimeConfig     `mapstructure:"regime"`
	Risk       RiskConfig       `mapstructure:"risk"`
	Stops      StopsConfig      `mapstructure:"stops"`
	RSI        RSIConfig        `mapstructure:"rsi"`
	Scaling    ScalingConfig    `mapstructure:"scaling"`
	Gates      GatesConfig      `mapstructure:"gates"`
	Intervals  IntervalsConfig  `mapstructure:"intervals"`
	Notify     NotifyConfig     `mapstructure:"notify"`

	Logging LoggingConfig `mapstructure:"logging"`
	Storage StorageConfig `mapstructure:"storage"`
	Broker  BrokerConfig  `mapstructure:"broker"`
}

// TimeframesConfig strings are str2duration-parseable ("5m", "1h", "4h"),
// matching the teacher's exchange/csv_feed.go resampling convention, so
// cmd/engine and cmd/replay's candle aggregator can turn them straight into
// time.Duration bucket widths.
type TimeframesConfig struct {
	Chart     string `mapstructure:"chart"`
	Primary   string `mapstructure:"primary"`
	Secondary string `mapstructure:"secondary"`
	Tertiary  string `mapstructure:"tertiary"`
}

type RegimeConfig struct {
	ADXTrendThreshold float64 `mapstructure:"adx_trend_threshold"`
	ADXBreakoutMin    float64 `mapstructure:"adx_breakout_min"`
	ATRPeriod         int     `mapstructure:"atr_period"`
	ATRAveragePeriod  int     `mapstructure:"atr_average_period"`
	HighVolMultiplier float64 `mapstructure:"high_vol_multiplier"`
}

type RiskConfig struct {
	RiskPctTrend    float64 `mapstructure:"risk_pct_trend"`
	RiskPctRange    float64 `mapstructure:"risk_pct_range"`
	RiskPctBreakout float64 `mapstructure:"risk_pct_breakout"`
	MaxRiskPerTrade float64 `mapstructure:"max_risk_per_trade"`
	MaxDrawdownPct  float64 `mapstructure:"max_drawdown_pct"`
	EquityPeakReset float64 `mapstructure:"equity_peak_reset"`
	MaxPositions    int     `mapstructure:"max_positions"`
}

type StopsConfig struct {
	SLAtrMult            float64 `mapstructure:"sl_atr_mult"`
	TPRewardRatio        float64 `mapstructure:"tp_reward_ratio"`
	BreakevenATR         float64 `mapstructure:"breakeven_atr"`
	TrailingStartATR     float64 `mapstructure:"trailing_start_atr"`
	PartialCloseATR      float64 `mapstructure:"partial_close_atr"`
	BreakevenBufferPips  float64 `mapstructure:"breakeven_buffer_pips"`
	TrailingATRMult      float64 `mapstructure:"trailing_atr_mult"`
	MinModifyPips        float64 `mapstructure:"min_modify_pips"`
	MinModifyATRFraction float64 `mapstructure:"min_modify_atr_fraction"`
	MinModifyCooldownSec int     `mapstructure:"min_modify_cooldown_sec"`
	MinStopDistanceMult  float64 `mapstructure:"min_stop_distance_mult"`
	MinKeyLevelStrength  float64 `mapstructure:"min_key_level_strength"`
}

type RSIConfig struct {
	EnableMTFRSI            bool    `mapstructure:"enable_mtf_rsi"`
	SecondaryOverbought     float64 `mapstructure:"secondary_overbought"`
	SecondaryOversold       float64 `mapstructure:"secondary_oversold"`
	TertiaryOverbought      float64 `mapstructure:"tertiary_overbought"`
	TertiaryOversold        float64 `mapstructure:"tertiary_oversold"`
	EnableRSIExits          bool    `mapstructure:"enable_rsi_exits"`
	ChartOverboughtExit     float64 `mapstructure:"chart_overbought_exit"`
	ChartOversoldExit       float64 `mapstructure:"chart_oversold_exit"`
	SecondaryOverboughtExit float64 `mapstructure:"secondary_overbought_exit"`
	SecondaryOversoldExit   float64 `mapstructure:"secondary_oversold_exit"`
	PartialCloseFraction    float64 `mapstructure:"partial_close_fraction"`
	CooldownSec             int     `mapstructure:"cooldown_sec"`
	MinProfitPips           float64 `mapstructure:"min_profit_pips"`
}

type ScalingConfig struct {
	Enable       bool    `mapstructure:"enable"`
	RangePeriods int     `mapstructure:"range_periods"`
	RangeBuffer  float64 `mapstructure:"range_buffer"`
	MaxPositions int     `mapstructure:"max_positions"`
	MinRangeSize float64 `mapstructure:"min_range_size"`
}

type GatesConfig struct {
	EnableEMAAlignment             bool    `mapstructure:"enable_ema_alignment"`
	PullbackATRMultBaseline        float64 `mapstructure:"pullback_atr_mult_baseline"`
	PullbackATRMultMax             float64 `mapstructure:"pullback_atr_mult_max"`
	SentimentMinConfidence         float64 `mapstructure:"sentiment_min_confidence"`
	TrendOracleOverrideADXSecondary float64 `mapstructure:"trend_oracle_override_adx_secondary"`
	TrendOracleOverrideADXPrimary   float64 `mapstructure:"trend_oracle_override_adx_primary"`
	BreakoutVolumeSpikeMult        float64 `mapstructure:"breakout_volume_spike_mult"`
	BreakoutUltraSurgeMult         float64 `mapstructure:"breakout_ultra_surge_mult"`
	BreakoutSurgeMult              float64 `mapstructure:"breakout_surge_mult"`
	RangeMinWidthSpreadMult        float64 `mapstructure:"range_min_width_spread_mult"`
	RangeBoundaryProximityPct      float64 `mapstructure:"range_boundary_proximity_pct"`
}

type IntervalsConfig struct {
	RegimeUpdateSec         int  `mapstructure:"regime_update_sec"`
	KeyLevelUpdateSec       int  `mapstructure:"key_level_update_sec"`
	RiskUpdateSec           int  `mapstructure:"risk_update_sec"`
	CalendarUpdateSec       int  `mapstructure:"calendar_update_sec"`
	ThrottleSeconds         int  `mapstructure:"throttle_seconds"`
	TriangleUpdateSec       int  `mapstructure:"triangle_update_sec"`
	TrianglesEnabled        bool `mapstructure:"triangles_enabled"`
	DisplayUpdateSec        int  `mapstructure:"display_update_sec"`
	EmergencyFailureThreshold int `mapstructure:"emergency_failure_threshold"`
	EmergencyRecoveryWindowSec int `mapstructure:"emergency_recovery_window_sec"`
	DispatchRetryCount      int  `mapstructure:"dispatch_retry_count"`
	DispatchRetryDelayMs    int  `mapstructure:"dispatch_retry_delay_ms"`
}

// NotifyConfig configures the notification/ package's alert channels.
type NotifyConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Mail     MailConfig     `mapstructure:"mail"`
}

type TelegramConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Token   string `mapstructure:"token"`
	Users   []int  `mapstructure:"users"`
}

type MailConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	SMTPServerAddress string `mapstructure:"smtp_server_address"`
	SMTPServerPort    int    `mapstructure:"smtp_server_port"`
	From              string `mapstructure:"from"`
	To                string `mapstructure:"to"`
	Password          string `mapstructure:"password"`
}

// LoggingConfig configures the logger/ package.
type LoggingConfig struct {
	Level          string `mapstructure:"level"`
	JSON           bool   `mapstructure:"json"`
	Colored        bool   `mapstructure:"colored"`
	DateTimeLayout string `mapstructure:"datetime_layout"`
}

// StorageConfig configures the reporter/ package's persistence sinks.
type StorageConfig struct {
	BuntPath      string `mapstructure:"bunt_path"`
	RingCapacity  int    `mapstructure:"ring_capacity"`
	SQLiteEnabled bool   `mapstructure:"sqlite_enabled"`
	SQLitePath    string `mapstructure:"sqlite_path"`
}

// BrokerConfig selects and configures the broker/ adapter.
type BrokerConfig struct {
	Kind            string  `mapstructure:"kind"` // "simulator" is the only adapter this repo ships
	StartBalance    float64 `mapstructure:"start_balance"`
	Digits          int     `mapstructure:"digits"`
	Point           float64 `mapstructure:"point"`
	TickValue       float64 `mapstructure:"tick_value"`
	TickSize        float64 `mapstructure:"tick_size"`
	MinVolume       float64 `mapstructure:"min_volume"`
	MaxVolume       float64 `mapstructure:"max_volume"`
	VolumeStep      float64 `mapstructure:"volume_step"`
	MinStopDistance float64 `mapstructure:"min_stop_distance"`
}

// Default returns the full set of out-of-the-box values, grounded on the
// defaults scattered through spec.md §6 and the teacher's strategy
// defaults (conservative, trend-following-biased).
func Default() *FileConfig {
	return &FileConfig{
		Symbol: "EURUSD",
		Timeframes: TimeframesConfig{
			Chart: "5m", Primary: "15m", Secondary: "1h", Tertiary: "4h",
		},
		Regime: RegimeConfig{
			ADXTrendThreshold: 25, ADXBreakoutMin: 20,
			ATRPeriod: 14, ATRAveragePeriod: 20, HighVolMultiplier: 2.0,
		},
		Risk: RiskConfig{
			RiskPctTrend: 0.01, RiskPctRange: 0.005, RiskPctBreakout: 0.0075,
			MaxRiskPerTrade: 0.02, MaxDrawdownPct: 0.25, EquityPeakReset: 0.05,
			MaxPositions: 5,
		},
		Stops: StopsConfig{
			SLAtrMult: 1.5, TPRewardRatio: 2.0, BreakevenATR: 1.0,
			TrailingStartATR: 1.5, PartialCloseATR: 1.0, BreakevenBufferPips: 0.00005,
			TrailingATRMult: 0.7, MinModifyPips: 0.0002, MinModifyATRFraction: 0.1,
			MinModifyCooldownSec: 30, MinStopDistanceMult: 1.0, MinKeyLevelStrength: 0.5,
		},
		RSI: RSIConfig{
			EnableMTFRSI: true, SecondaryOverbought: 70, SecondaryOversold: 30,
			TertiaryOverbought: 70, TertiaryOversold: 30,
			EnableRSIExits: true, ChartOverboughtExit: 75, ChartOversoldExit: 25,
			SecondaryOverboughtExit: 70, SecondaryOversoldExit: 30,
			PartialCloseFraction: 0.5, CooldownSec: 300, MinProfitPips: 0.0005,
		},
		Scaling: ScalingConfig{
			Enable: true, RangePeriods: 20, RangeBuffer: 0.0002,
			MaxPositions: 3, MinRangeSize: 0.0010,
		},
		Gates: GatesConfig{
			EnableEMAAlignment: true, PullbackATRMultBaseline: 3.5, PullbackATRMultMax: 4.5,
			SentimentMinConfidence: 0.5,
			TrendOracleOverrideADXSecondary: 35, TrendOracleOverrideADXPrimary: 40,
			BreakoutVolumeSpikeMult: 1.5, BreakoutUltraSurgeMult: 3.0, BreakoutSurgeMult: 2.0,
			RangeMinWidthSpreadMult: 1.5, RangeBoundaryProximityPct: 0.002,
		},
		Intervals: IntervalsConfig{
			RegimeUpdateSec: 60, KeyLevelUpdateSec: 60, RiskUpdateSec: 60, CalendarUpdateSec: 300,
			ThrottleSeconds: 300, TriangleUpdateSec: 60, TrianglesEnabled: false, DisplayUpdateSec: 5,
			EmergencyFailureThreshold: 5, EmergencyRecoveryWindowSec: 3600,
			DispatchRetryCount: 3, DispatchRetryDelayMs: 500,
		},
		Notify: NotifyConfig{
			Telegram: TelegramConfig{Enabled: false},
			Mail:     MailConfig{Enabled: false, SMTPServerPort: 587},
		},
		Logging: LoggingConfig{Level: "info", JSON: false, Colored: true, DateTimeLayout: time.RFC3339},
		Storage: StorageConfig{BuntPath: "./decisions.db", RingCapacity: 1000, SQLiteEnabled: false, SQLitePath: "./decisions.sqlite"},
		Broker: BrokerConfig{
			Kind: "simulator", StartBalance: 10000,
			Digits: 5, Point: 0.00001,
			TickValue: 1, TickSize: 0.0001, MinVolume: 0.01, MaxVolume: 100, VolumeStep: 0.01,
			MinStopDistance: 0.0005,
		},
	}
}

// Load reads configPath via viper (YAML, with every BACKNRUN_-prefixed
// env var as an override, mirroring AppConfig.LoadAppConfig's
// viper.AutomaticEnv), writing out Default() on first run the same way
// LoadStrategyConfig.saveDefaultConfig does.
func Load(configPath string) (*FileConfig, error) {
	if configPath == "" {
		configPath = DefaultConfigPath
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return saveDefault(configPath)
	}

	v := newViper(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", configPath, err)
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", configPath, err)
	}
	return cfg, nil
}

func newViper(configPath string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetEnvPrefix("BACKNRUN")
	v.AutomaticEnv()
	return v
}

func saveDefault(configPath string) (*FileConfig, error) {
	dir := filepath.Dir(configPath)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Default(), fmt.Errorf("config: create %s: %w", dir, err)
		}
	}

	cfg := Default()
	v := viper.New()
	v.SetConfigFile(configPath)
	v.Set("symbol", cfg.Symbol)
	v.Set("timeframes", cfg.Timeframes)
	v.Set("regime", cfg.Regime)
	v.Set("risk", cfg.Risk)
	v.Set("stops", cfg.Stops)
	v.Set("rsi", cfg.RSI)
	v.Set("scaling", cfg.Scaling)
	v.Set("gates", cfg.Gates)
	v.Set("intervals", cfg.Intervals)
	v.Set("notify", cfg.Notify)
	v.Set("logging", cfg.Logging)
	v.Set("storage", cfg.Storage)
	v.Set("broker", cfg.Broker)

	if err := v.WriteConfig(); err != nil {
		return cfg, fmt.Errorf("config: write default %s: %w", configPath, err)
	}
	return cfg, nil
}

// ToSettings projects the file config into core.Settings, the only shape
// every domain package accepts.
func (c *FileConfig) ToSettings() core.Settings {
	return core.Settings{
		Symbol: c.Symbol,
		Timeframes: core.TimeframeSettings{
			Chart:     core.Timeframe(c.Timeframes.Chart),
			Primary:   core.Timeframe(c.Timeframes.Primary),
			Secondary: core.Timeframe(c.Timeframes.Secondary),
			Tertiary:  core.Timeframe(c.Timeframes.Tertiary),
		},
		Regime: core.RegimeSettings{
			ADXTrendThreshold: c.Regime.ADXTrendThreshold,
			ADXBreakoutMin:    c.Regime.ADXBreakoutMin,
			ATRPeriod:         c.Regime.ATRPeriod,
			ATRAveragePeriod:  c.Regime.ATRAveragePeriod,
			HighVolMultiplier: c.Regime.HighVolMultiplier,
		},
		Risk: core.RiskSettings{
			RiskPctTrend:    c.Risk.RiskPctTrend,
			RiskPctRange:    c.Risk.RiskPctRange,
			RiskPctBreakout: c.Risk.RiskPctBreakout,
			MaxRiskPerTrade: c.Risk.MaxRiskPerTrade,
			MaxDrawdownPct:  c.Risk.MaxDrawdownPct,
			EquityPeakReset: c.Risk.EquityPeakReset,
			MaxPositions:    c.Risk.MaxPositions,
		},
		Stops: core.StopSettings{
			SLAtrMult:            c.Stops.SLAtrMult,
			TPRewardRatio:        c.Stops.TPRewardRatio,
			BreakevenATR:         c.Stops.BreakevenATR,
			TrailingStartATR:     c.Stops.TrailingStartATR,
			PartialCloseATR:      c.Stops.PartialCloseATR,
			BreakevenBufferPips:  c.Stops.BreakevenBufferPips,
			TrailingATRMult:      c.Stops.TrailingATRMult,
			MinModifyPips:        c.Stops.MinModifyPips,
			MinModifyATRFraction: c.Stops.MinModifyATRFraction,
			MinModifyCooldownSec: c.Stops.MinModifyCooldownSec,
			MinStopDistanceMult:  c.Stops.MinStopDistanceMult,
			MinKeyLevelStrength:  c.Stops.MinKeyLevelStrength,
		},
		RSI: core.RSISettings{
			EnableMTFRSI:            c.RSI.EnableMTFRSI,
			SecondaryOverbought:     c.RSI.SecondaryOverbought,
			SecondaryOversold:       c.RSI.SecondaryOversold,
			TertiaryOverbought:      c.RSI.TertiaryOverbought,
			TertiaryOversold:        c.RSI.TertiaryOversold,
			EnableRSIExits:          c.RSI.EnableRSIExits,
			ChartOverboughtExit:     c.RSI.ChartOverboughtExit,
			ChartOversoldExit:       c.RSI.ChartOversoldExit,
			SecondaryOverboughtExit: c.RSI.SecondaryOverboughtExit,
			SecondaryOversoldExit:   c.RSI.SecondaryOversoldExit,
			PartialCloseFraction:    c.RSI.PartialCloseFraction,
			CooldownSec:             c.RSI.CooldownSec,
			MinProfitPips:           c.RSI.MinProfitPips,
		},
		Scaling: core.ScalingSettings{
			Enable:       c.Scaling.Enable,
			RangePeriods: c.Scaling.RangePeriods,
			RangeBuffer:  c.Scaling.RangeBuffer,
			MaxPositions: c.Scaling.MaxPositions,
			MinRangeSize: c.Scaling.MinRangeSize,
		},
		Gates: core.GateSettings{
			EnableEMAAlignment:              c.Gates.EnableEMAAlignment,
			PullbackATRMultBaseline:         c.Gates.PullbackATRMultBaseline,
			PullbackATRMultMax:              c.Gates.PullbackATRMultMax,
			SentimentMinConfidence:          c.Gates.SentimentMinConfidence,
			TrendOracleOverrideADXSecondary: c.Gates.TrendOracleOverrideADXSecondary,
			TrendOracleOverrideADXPrimary:   c.Gates.TrendOracleOverrideADXPrimary,
			BreakoutVolumeSpikeMult:         c.Gates.BreakoutVolumeSpikeMult,
			BreakoutUltraSurgeMult:          c.Gates.BreakoutUltraSurgeMult,
			BreakoutSurgeMult:               c.Gates.BreakoutSurgeMult,
			RangeMinWidthSpreadMult:         c.Gates.RangeMinWidthSpreadMult,
			RangeBoundaryProximityPct:       c.Gates.RangeBoundaryProximityPct,
		},
		Intervals: core.IntervalSettings{
			RegimeUpdate:              time.Duration(c.Intervals.RegimeUpdateSec) * time.Second,
			KeyLevelUpdate:            time.Duration(c.Intervals.KeyLevelUpdateSec) * time.Second,
			RiskUpdate:                time.Duration(c.Intervals.RiskUpdateSec) * time.Second,
			CalendarUpdate:            time.Duration(c.Intervals.CalendarUpdateSec) * time.Second,
			ThrottleSeconds:           c.Intervals.ThrottleSeconds,
			TriangleUpdate:            time.Duration(c.Intervals.TriangleUpdateSec) * time.Second,
			TrianglesEnabled:          c.Intervals.TrianglesEnabled,
			DisplayUpdate:             time.Duration(c.Intervals.DisplayUpdateSec) * time.Second,
			EmergencyFailureThreshold: c.Intervals.EmergencyFailureThreshold,
			EmergencyRecoveryWindow:   time.Duration(c.Intervals.EmergencyRecoveryWindowSec) * time.Second,
			DispatchRetryCount:        c.Intervals.DispatchRetryCount,
			DispatchRetryDelay:        time.Duration(c.Intervals.DispatchRetryDelayMs) * time.Millisecond,
		},
		Notify: core.NotificationSettings{
			Telegram: core.TelegramSettings{
				Enabled: c.Notify.Telegram.Enabled,
				Token:   c.Notify.Telegram.Token,
				Users:   c.Notify.Telegram.Users,
			},
			Mail: core.MailSettings{
				Enabled:           c.Notify.Mail.Enabled,
				SMTPServerAddress: c.Notify.Mail.SMTPServerAddress,
				SMTPServerPort:    c.Notify.Mail.SMTPServerPort,
				From:              c.Notify.Mail.From,
				To:                c.Notify.Mail.To,
				Password:          c.Notify.Mail.Password,
			},
		},
	}
}

// ToSymbolInfo projects the broker config into a core.SymbolInfo, used by
// broker.New when the simulator is selected (§6 broker adapter).
func (c *FileConfig) ToSymbolInfo() core.SymbolInfo {
	return core.SymbolInfo{
		Digits:          c.Broker.Digits,
		Point:           c.Broker.Point,
		TickValue:       c.Broker.TickValue,
		TickSize:        c.Broker.TickSize,
		MinVolume:       c.Broker.MinVolume,
		MaxVolume:       c.Broker.MaxVolume,
		VolumeStep:      c.Broker.VolumeStep,
		MinStopDistance: c.Broker.MinStopDistance,
	}
}
