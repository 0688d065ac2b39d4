package costing

import (
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Cost constants live in config/costing.yaml so warehouse billing tiers can be
// tuned without a rebuild. Missing file or fields fall back to DefaultModel.

type fileConfig struct {
	Costing Model `yaml:"costing"`
}

var (
	mu     sync.RWMutex
	loaded *Model
)

var defaultPaths = []string{
	os.Getenv("COSTING_CONFIG_PATH"),
	"/app/config/costing.yaml",
	"./config/costing.yaml",
}

// LoadModel returns the configured cost model, reading the config file on
// first use. Fields left at zero in the file keep their defaults.
func LoadModel() Model {
	mu.RLock()
	if loaded != nil {
		m := *loaded
		mu.RUnlock()
		return m
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if loaded != nil {
		return *loaded
	}

	m := DefaultModel()
	for _, p := range defaultPaths {
		if p == "" {
			continue
		}
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		var cfg fileConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			continue
		}
		m = mergeModel(m, cfg.Costing)
		break
	}
	loaded = &m
	return m
}

// Reload forces a re-read of the costing configuration.
func Reload() {
	mu.Lock()
	loaded = nil
	mu.Unlock()
}

func mergeModel(base, override Model) Model {
	if override.BaseScanBytes > 0 {
		base.BaseScanBytes = override.BaseScanBytes
	}
	if override.CreditsPerGB > 0 {
		base.CreditsPerGB = override.CreditsPerGB
	}
	if override.DefaultLimit > 0 {
		base.DefaultLimit = override.DefaultLimit
	}
	if override.LargeLimit > 0 {
		base.LargeLimit = override.LargeLimit
	}
	if override.ScoreStep > 0 {
		base.ScoreStep = override.ScoreStep
	}
	if override.SelectStarMult > 0 {
		base.SelectStarMult = override.SelectStarMult
	}
	if override.NoWhereMult > 0 {
		base.NoWhereMult = override.NoWhereMult
	}
	return base
}
