package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Mode        string `yaml:"mode"` // "live" or "backtest"
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Backend struct {
		Type         string        `yaml:"type"`
		BatchSize    int           `yaml:"batch_size"`
		BatchTimeout time.Duration `yaml:"batch_timeout"`
	} `yaml:"backend"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		BarTopic     string   `yaml:"bar_topic"`
		ResultTopic  string   `yaml:"result_topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
		Tables           struct {
			Bars      string `yaml:"bars"`
			Snapshots string `yaml:"snapshots"`
			Features  string `yaml:"features"`
			Results   string `yaml:"results"`
		} `yaml:"tables"`
	} `yaml:"clickhouse"`
	Feed struct {
		APIKey         string        `yaml:"api_key"`
		WebSocketURL   string        `yaml:"websocket_url"`
		RestURL        string        `yaml:"rest_url"`
		Resolution     string        `yaml:"resolution"`
		Symbols        []string      `yaml:"symbols"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
		BackfillWindow time.Duration `yaml:"backfill_window"`
	} `yaml:"feed"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Schema struct {
		Path string `yaml:"path"`
	} `yaml:"schema"`
	Indicators struct {
		IntervalMinutes int    `yaml:"interval_minutes"`
		OpsHoursDaily   int    `yaml:"ops_hours_daily"`
		OpsDaysWeekly   int    `yaml:"ops_days_weekly"`
		VolumeWindows   []int  `yaml:"volume_windows"`
		Timezone        string `yaml:"timezone"`
	} `yaml:"indicators"`
	Sweep SweepConfig `yaml:"sweep"`
}

// SweepConfig declares the grid and runtime settings of the sweep driver.
type SweepConfig struct {
	Workers       int                  `yaml:"workers"`
	Deadline      time.Duration        `yaml:"deadline"`
	HorizonBars   int                  `yaml:"horizon_bars"`
	SplitRatio    float64              `yaml:"split_ratio"`
	Seed          int64                `yaml:"seed"`
	Trainer       string               `yaml:"trainer"` // "local" or "remote"
	RemoteURL     string               `yaml:"remote_url"`
	IndicatorSets []IndicatorSetConfig `yaml:"indicator_sets"`
	ModelGrid     ModelGridConfig      `yaml:"model_grid"`
	Backtest      struct {
		Symbol string `yaml:"symbol"`
		From   string `yaml:"from"` // RFC3339
		To     string `yaml:"to"`
	} `yaml:"backtest"`
}

// IndicatorVariantConfig mirrors one parameter variant of the indicator
// engine.
type IndicatorVariantConfig struct {
	BollingerPeriod      int `yaml:"bollinger_timeperiod"`
	RSIPeriod            int `yaml:"rsi_timeperiod"`
	MACDFast             int `yaml:"macd_fastperiod"`
	MACDSlow             int `yaml:"macd_slowperiod"`
	MACDSignal           int `yaml:"macd_signalperiod"`
	StochasticK          int `yaml:"stochastic_fastk_period"`
	StochasticD          int `yaml:"stochastic_d_period"`
	ADXPeriod            int `yaml:"adx_timeperiod"`
	EMAShort             int `yaml:"ema_short_period"`
	EMALong              int `yaml:"ema_long_period"`
	ATRPeriod            int `yaml:"atr_timeperiod"`
	CCIPeriod            int `yaml:"cci_timeperiod"`
	IchimokuConversion   int `yaml:"ichimoku_conversion_line_period"`
	IchimokuBase         int `yaml:"ichimoku_base_line_periods"`
	IchimokuSpanB        int `yaml:"ichimoku_lagging_span2_periods"`
	IchimokuDisplacement int `yaml:"ichimoku_displacement"`
	FibonacciWindow      int `yaml:"fibonacci_window"`
}

type IndicatorSetConfig struct {
	Name     string                   `yaml:"name"`
	Variants []IndicatorVariantConfig `yaml:"variants"`
}

type ModelGridConfig struct {
	NEstimators     []int `yaml:"n_estimators"`
	MaxDepth        []int `yaml:"max_depth"`
	MinSamplesSplit []int `yaml:"min_samples_split"`
	MinSamplesLeaf  []int `yaml:"min_samples_leaf"`
	NFeatures       []int `yaml:"n_features"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("FEED_API_KEY"); v != "" {
		c.Feed.APIKey = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Feed.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("MODE"); v != "" {
		c.Mode = v
	}
	if v := os.Getenv("BACKEND"); v != "" {
		c.Backend.Type = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_BAR_TOPIC"); v != "" {
		c.Kafka.BarTopic = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Mode != "live" && c.Mode != "backtest" {
		return fmt.Errorf("mode must be 'live' or 'backtest', got '%s'", c.Mode)
	}
	if c.Backend.Type == "" {
		return fmt.Errorf("backend.type is required")
	}
	if c.Backend.Type != "kafka" && c.Backend.Type != "clickhouse" {
		return fmt.Errorf("backend.type must be 'kafka' or 'clickhouse', got '%s'", c.Backend.Type)
	}
	if c.Schema.Path == "" {
		return fmt.Errorf("schema.path is required")
	}
	if c.Mode == "live" {
		if len(c.Feed.Symbols) == 0 {
			return fmt.Errorf("feed.symbols cannot be empty")
		}
		if c.Feed.APIKey == "" {
			return fmt.Errorf("feed.api_key is required")
		}
	}
	if len(c.Sweep.IndicatorSets) == 0 {
		return fmt.Errorf("sweep.indicator_sets cannot be empty")
	}
	for _, set := range c.Sweep.IndicatorSets {
		if set.Name == "" {
			return fmt.Errorf("sweep.indicator_sets entries need a name")
		}
		if len(set.Variants) != 3 {
			return fmt.Errorf("indicator set %q: expected 3 variants, got %d", set.Name, len(set.Variants))
		}
	}
	return nil
}
