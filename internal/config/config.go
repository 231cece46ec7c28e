package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"controlling_resistances/internal/logger"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Run modes selected with --mode.
const (
	ModeServe    = "serve"
	ModeEstimate = "estimate"
	ModeControl  = "control"
)

// Actuator backends selected with actuator.kind.
const (
	ActuatorHTTP   = "http"
	ActuatorMQTT   = "mqtt"
	ActuatorModbus = "modbus"
	ActuatorNoop   = "noop"
)

const (
	envPrefix         = "RESCTL"
	defaultConfigFile = "configs/config.yml"
)

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console | json
}

type AuthConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
}

type ThermalConfig struct {
	AmbientC       float64       `mapstructure:"ambient_c"`
	SampleInterval time.Duration `mapstructure:"sample_interval"`
	TMaxUpper      float64       `mapstructure:"t_max_upper"`
	KUpper         float64       `mapstructure:"k_upper"`
	MaxIterations  int           `mapstructure:"max_iterations"`
}

type SafetyConfig struct {
	MaxTempC float64 `mapstructure:"max_temp_c"`
	MarginC  float64 `mapstructure:"margin_c"`
}

type SheetConfig struct {
	MeasurementsURL   string        `mapstructure:"measurements_url"`
	MeasurementsCache string        `mapstructure:"measurements_cache"`
	ControlURL        string        `mapstructure:"control_url"`
	ControlCache      string        `mapstructure:"control_cache"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

type ScheduleConfig struct {
	Step time.Duration `mapstructure:"step"`
}

type ControlConfig struct {
	Tick         time.Duration `mapstructure:"tick"`
	LogEvery     int           `mapstructure:"log_every"`
	RefreshEvery int           `mapstructure:"refresh_every"`
}

type RelayPaths struct {
	OnPath    string `mapstructure:"on_path"`
	OffPath   string `mapstructure:"off_path"`
	StatePath string `mapstructure:"state_path"`
}

type ModbusConfig struct {
	Port    int `mapstructure:"port"`
	Coil    int `mapstructure:"coil"`
	SlaveID int `mapstructure:"slave_id"`
}

type ActuatorConfig struct {
	Kind    string        `mapstructure:"kind"`
	Workers int           `mapstructure:"workers"`
	Queue   int           `mapstructure:"queue"`
	Timeout time.Duration `mapstructure:"timeout"`
	HTTP    RelayPaths    `mapstructure:"http"`
	Modbus  ModbusConfig  `mapstructure:"modbus"`
}

type MQTTConfig struct {
	Broker      string `mapstructure:"broker"`
	ClientID    string `mapstructure:"client_id"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	TopicPrefix string `mapstructure:"topic_prefix"`
}

type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type HTTPConfig struct {
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// Config is the full application configuration. Command line values
// (Mode, Measurements, Out, Initial) are merged in by Load.
type Config struct {
	Mode         string    `mapstructure:"mode"`
	Measurements string    `mapstructure:"measurements"`
	Out          string    `mapstructure:"out"`
	Initial      []float64 `mapstructure:"-"`

	Port      string          `mapstructure:"port"`
	DB        DBConfig        `mapstructure:"db"`
	Log       LogConfig       `mapstructure:"log"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Thermal   ThermalConfig   `mapstructure:"thermal"`
	Safety    SafetyConfig    `mapstructure:"safety"`
	Sheet     SheetConfig     `mapstructure:"sheet"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
	Control   ControlConfig   `mapstructure:"control"`
	Actuator  ActuatorConfig  `mapstructure:"actuator"`
	MQTT      MQTTConfig      `mapstructure:"mqtt"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	HTTP      HTTPConfig      `mapstructure:"http"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", ModeServe)
	v.SetDefault("measurements", "")
	v.SetDefault("out", "")

	v.SetDefault("port", "8080")
	v.SetDefault("db.path", "app.db")
	v.SetDefault("log.level", logger.InfoLevel)
	v.SetDefault("log.format", logger.FormatConsole)
	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.token_ttl", 12*time.Hour)

	v.SetDefault("thermal.ambient_c", 21.5)
	v.SetDefault("thermal.sample_interval", 300*time.Second)
	v.SetDefault("thermal.t_max_upper", 2000.0)
	v.SetDefault("thermal.k_upper", 2.0)
	v.SetDefault("thermal.max_iterations", 2000)

	v.SetDefault("safety.max_temp_c", 300.0)
	v.SetDefault("safety.margin_c", 0.5)

	v.SetDefault("sheet.measurements_url", "")
	v.SetDefault("sheet.measurements_cache", "data/measurements.csv")
	v.SetDefault("sheet.control_url", "")
	v.SetDefault("sheet.control_cache", "data/control.csv")
	v.SetDefault("sheet.timeout", 10*time.Second)

	v.SetDefault("schedule.step", 5*time.Minute)

	v.SetDefault("control.tick", time.Second)
	v.SetDefault("control.log_every", 60)
	v.SetDefault("control.refresh_every", 60)

	v.SetDefault("actuator.kind", ActuatorHTTP)
	v.SetDefault("actuator.workers", 6)
	v.SetDefault("actuator.queue", 64)
	v.SetDefault("actuator.timeout", 3*time.Second)
	v.SetDefault("actuator.http.on_path", "/relay/0?turn=on")
	v.SetDefault("actuator.http.off_path", "/relay/0?turn=off")
	v.SetDefault("actuator.http.state_path", "/relay/0")
	v.SetDefault("actuator.modbus.port", 502)
	v.SetDefault("actuator.modbus.coil", 0)
	v.SetDefault("actuator.modbus.slave_id", 1)

	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.client_id", "resctl")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.topic_prefix", "resistances")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("http.cors_origins", []string{"*"})
}

// Flags declares the command line of the binary.
func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("resctl", pflag.ContinueOnError)
	fs.String("mode", ModeServe, "run mode: serve | estimate | control")
	fs.String("config", defaultConfigFile, "path to the YAML config file")
	fs.Float64Slice("initial", nil, "initial temperatures, positional per heater (e.g. --initial 25,30)")
	fs.String("measurements", "", "measurement CSV file; overrides sheet.measurements_url")
	fs.String("out", "", "write observed vs modeled series as CSV (estimate mode)")
	return fs
}

// Load parses args, reads the config file and applies RESCTL_* environment
// overrides. A missing default config file is not an error; a missing file
// named with --config is.
func Load(args []string) (Config, error) {
	fs := Flags()
	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("parse flags: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, name := range []string{"mode", "measurements", "out"} {
		if err := v.BindPFlag(name, fs.Lookup(name)); err != nil {
			return Config{}, fmt.Errorf("bind flag %q: %w", name, err)
		}
	}

	path, _ := fs.GetString("config")
	if err := readFile(v, path, fs.Changed("config")); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	initial, err := fs.GetFloat64Slice("initial")
	if err != nil {
		return Config{}, fmt.Errorf("read --initial: %w", err)
	}
	cfg.Initial = initial

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readFile(v *viper.Viper, path string, explicit bool) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("config file %q: %w", path, err)
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %q: %w", path, err)
	}
	return nil
}

// Validate rejects values the control loop or the estimator cannot run with.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeServe, ModeEstimate, ModeControl:
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	switch c.Actuator.Kind {
	case ActuatorHTTP, ActuatorMQTT, ActuatorModbus, ActuatorNoop:
	default:
		return fmt.Errorf("unknown actuator.kind %q", c.Actuator.Kind)
	}
	if c.Actuator.Kind == ActuatorMQTT && c.MQTT.Broker == "" {
		return errors.New("actuator.kind mqtt requires mqtt.broker")
	}
	if c.Telemetry.Enabled && c.MQTT.Broker == "" {
		return errors.New("telemetry.enabled requires mqtt.broker")
	}
	if !logger.ValidLevel(c.Log.Level) {
		return fmt.Errorf("unknown log.level %q", c.Log.Level)
	}
	if !logger.ValidFormat(c.Log.Format) {
		return fmt.Errorf("unknown log.format %q", c.Log.Format)
	}
	if c.Thermal.SampleInterval < time.Second || c.Thermal.SampleInterval%time.Second != 0 {
		return fmt.Errorf("thermal.sample_interval must be a whole number of seconds, got %s", c.Thermal.SampleInterval)
	}
	if c.Schedule.Step < time.Second || c.Schedule.Step%time.Second != 0 {
		return fmt.Errorf("schedule.step must be a whole number of seconds, got %s", c.Schedule.Step)
	}
	if c.Control.Tick <= 0 {
		return fmt.Errorf("control.tick must be positive, got %s", c.Control.Tick)
	}
	if c.Safety.MarginC < 0 {
		return fmt.Errorf("safety.margin_c must not be negative, got %g", c.Safety.MarginC)
	}
	if c.Safety.MaxTempC <= c.Thermal.AmbientC {
		return fmt.Errorf("safety.max_temp_c %g must be above thermal.ambient_c %g", c.Safety.MaxTempC, c.Thermal.AmbientC)
	}
	return nil
}

// SampleIntervalSec is the measurement grid spacing in whole seconds.
func (c Config) SampleIntervalSec() int { return int(c.Thermal.SampleInterval / time.Second) }

// ScheduleStepSec is how long each coarse schedule row is held, in seconds.
func (c Config) ScheduleStepSec() int { return int(c.Schedule.Step / time.Second) }
