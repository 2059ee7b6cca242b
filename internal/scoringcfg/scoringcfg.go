// Package scoringcfg loads the batch-selection config: the batch size
// limit and the premium-bundle name fragments that exclude a customer
// from bulk requalification.
package scoringcfg

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const DefaultBatchLimit = 500

type Config struct {
	BatchLimit             int      `yaml:"batch_limit"`
	PremiumBundleFragments []string `yaml:"premium_bundle_fragments"`
}

func Default() Config {
	return Config{BatchLimit: DefaultBatchLimit}
}

// Load reads the YAML config at path. An empty path yields defaults; a
// missing file is an error so a typo'd path cannot silently widen the
// batch to customers that paid for premium support.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read scoring config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse scoring config: %w", err)
	}
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = DefaultBatchLimit
	}
	return cfg, nil
}
