package config

import (
	"fmt"
	"strings"
)

var knownModules = map[string]struct{}{
	"escrow":     {},
	"registry":   {},
	"router":     {},
	"aggregator": {},
	"limitorder": {},
}

// Validate rejects configurations that cannot produce a working node.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil configuration")
	}
	if cfg.PlatformFeeBps > 10_000 {
		return fmt.Errorf("config: PlatformFeeBps %d exceeds 10000", cfg.PlatformFeeBps)
	}
	if strings.TrimSpace(cfg.Admin) != "" {
		if _, err := cfg.AdminAddress(); err != nil {
			return err
		}
	}
	if strings.TrimSpace(cfg.RegistryAuthority) != "" {
		if _, err := cfg.RegistryAuthorityAddress(); err != nil {
			return err
		}
	}
	if _, err := cfg.OperatorAddresses(); err != nil {
		return err
	}
	if _, err := cfg.AggregatorProgramAddress(); err != nil {
		return err
	}
	for _, module := range cfg.PausedModules {
		name := strings.ToLower(strings.TrimSpace(module))
		if name == "" {
			continue
		}
		if _, ok := knownModules[name]; !ok {
			return fmt.Errorf("config: unknown module %q in PausedModules", module)
		}
	}
	return nil
}
