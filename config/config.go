package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del simulador.
type Config struct {
	Session   SessionConfig   `yaml:"session"`
	Companies []CompanyConfig `yaml:"companies"`
	Bots      []BotConfig     `yaml:"bots"`
	Storage   StorageConfig   `yaml:"storage"`
	Log       LogConfig       `yaml:"log"`
}

// SessionConfig controla los parámetros de la ronda IPO.
type SessionConfig struct {
	InitialCapital       float64 `yaml:"initial_capital"`
	LotSize              int     `yaml:"lot_size"`
	ClearingDelaySeconds int     `yaml:"clearing_delay_seconds"` // "pensamiento" de los bots antes del clearing
	RoundWindowSeconds   int     `yaml:"round_window_seconds"`   // 0 = sin límite de ronda
	Seed                 int64   `yaml:"seed"`                   // 0 = aleatorio
}

// CompanyConfig define una compañía del slate inicial.
type CompanyConfig struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	TotalShares int    `yaml:"total_shares"`
}

// BotConfig define un bot participante y su arquetipo de comportamiento.
type BotConfig struct {
	Name      string `yaml:"name"`
	Archetype string `yaml:"archetype"` // aggressive | conservative | balanced | concentrated | diversified | scavenger
}

// StorageConfig controla dónde se persiste el histórico de rondas.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, ":memory:", o vacío para desactivar
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ClearingDelay devuelve el retardo de clearing como time.Duration.
func (c *Config) ClearingDelay() time.Duration {
	return time.Duration(c.Session.ClearingDelaySeconds) * time.Second
}

// RoundWindow devuelve la ventana máxima de ronda como time.Duration.
func (c *Config) RoundWindow() time.Duration {
	return time.Duration(c.Session.RoundWindowSeconds) * time.Second
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("MARKETSIM_DB"); v != "" {
		cfg.Storage.DSN = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Session.InitialCapital <= 0 {
		cfg.Session.InitialCapital = 1000
	}
	if cfg.Session.LotSize <= 0 {
		cfg.Session.LotSize = 100
	}
	if cfg.Session.ClearingDelaySeconds <= 0 {
		cfg.Session.ClearingDelaySeconds = 2
	}
	if len(cfg.Companies) == 0 {
		cfg.Companies = []CompanyConfig{
			{ID: "apex", Name: "Apex Rail", TotalShares: 2000},
			{ID: "borealis", Name: "Borealis Mining", TotalShares: 1500},
			{ID: "cascade", Name: "Cascade Shipping", TotalShares: 2500},
			{ID: "drift", Name: "Drift Telegraph", TotalShares: 1000},
		}
	}
	if len(cfg.Bots) == 0 {
		cfg.Bots = []BotConfig{
			{Name: "Vanderbilt", Archetype: "aggressive"},
			{Name: "Astor", Archetype: "conservative"},
			{Name: "Gould", Archetype: "concentrated"},
			{Name: "Morgan", Archetype: "balanced"},
			{Name: "Fisk", Archetype: "scavenger"},
		}
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// validate comprueba la coherencia básica del slate y los bots.
func validate(cfg *Config) error {
	seen := make(map[string]bool, len(cfg.Companies))
	for _, c := range cfg.Companies {
		if c.ID == "" {
			return fmt.Errorf("config.Load: company with empty id")
		}
		if seen[c.ID] {
			return fmt.Errorf("config.Load: duplicate company id %q", c.ID)
		}
		seen[c.ID] = true
		if c.TotalShares <= 0 {
			return fmt.Errorf("config.Load: company %q has no shares", c.ID)
		}
	}
	for _, b := range cfg.Bots {
		if b.Name == "" {
			return fmt.Errorf("config.Load: bot with empty name")
		}
		if b.Archetype == "" {
			return fmt.Errorf("config.Load: bot %q has no archetype", b.Name)
		}
	}
	return nil
}
