package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"routevault/crypto"
)

type Config struct {
	ListenAddress string `toml:"ListenAddress"`
	DataDir       string `toml:"DataDir"`
	Environment   string `toml:"Environment"`
	LogFile       string `toml:"LogFile"`

	// Admin bootstraps the escrow authority admin on first start.
	Admin string `toml:"Admin"`
	// RegistryAuthority bootstraps the adapter registry authority.
	RegistryAuthority string   `toml:"RegistryAuthority"`
	Operators         []string `toml:"Operators"`

	PlatformFeeBps    uint32 `toml:"PlatformFeeBps"`
	AggregatorProgram string `toml:"AggregatorProgram"`

	JWTSecret          string   `toml:"JWTSecret"`
	RateLimitPerMinute int      `toml:"RateLimitPerMinute"`
	PausedModules      []string `toml:"PausedModules"`
}

// Load loads the configuration from the given path, writing a default file
// when none exists.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := persist(path, cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		ListenAddress:      "127.0.0.1:8645",
		DataDir:            "./data",
		Environment:        "local",
		PlatformFeeBps:     25,
		RateLimitPerMinute: 600,
		Operators:          []string{},
		PausedModules:      []string{},
	}
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = "127.0.0.1:8645"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./data"
	}
	if strings.TrimSpace(cfg.Environment) == "" {
		cfg.Environment = "local"
	}
	if cfg.RateLimitPerMinute <= 0 {
		cfg.RateLimitPerMinute = 600
	}
	if cfg.Operators == nil {
		cfg.Operators = []string{}
	}
	if cfg.PausedModules == nil {
		cfg.PausedModules = []string{}
	}
}

func persist(path string, cfg *Config) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return toml.NewEncoder(file).Encode(cfg)
}

// Pauses converts the configured paused module list to the switch map the
// engines consume.
func (c *Config) Pauses() map[string]bool {
	pauses := make(map[string]bool, len(c.PausedModules))
	for _, module := range c.PausedModules {
		module = strings.ToLower(strings.TrimSpace(module))
		if module != "" {
			pauses[module] = true
		}
	}
	return pauses
}

// AdminAddress decodes the configured admin address.
func (c *Config) AdminAddress() ([20]byte, error) {
	return decodeAddress("Admin", c.Admin)
}

// RegistryAuthorityAddress decodes the configured registry authority.
func (c *Config) RegistryAuthorityAddress() ([20]byte, error) {
	return decodeAddress("RegistryAuthority", c.RegistryAuthority)
}

// OperatorAddresses decodes the configured operator set.
func (c *Config) OperatorAddresses() ([][20]byte, error) {
	operators := make([][20]byte, 0, len(c.Operators))
	for _, raw := range c.Operators {
		addr, err := decodeAddress("Operators", raw)
		if err != nil {
			return nil, err
		}
		operators = append(operators, addr)
	}
	return operators, nil
}

// AggregatorProgramAddress decodes the configured aggregator program, zero
// when unset.
func (c *Config) AggregatorProgramAddress() ([20]byte, error) {
	if strings.TrimSpace(c.AggregatorProgram) == "" {
		return [20]byte{}, nil
	}
	return decodeAddress("AggregatorProgram", c.AggregatorProgram)
}

func decodeAddress(field, raw string) ([20]byte, error) {
	addr, err := crypto.DecodeAddress(strings.TrimSpace(raw))
	if err != nil {
		return [20]byte{}, fmt.Errorf("config: invalid %s address %q: %w", field, raw, err)
	}
	return addr, nil
}
