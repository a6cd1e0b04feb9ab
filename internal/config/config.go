package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Logger struct {
	Level string `yaml:"level"`
}

type Global struct {
	Logger Logger `yaml:"logger"`
}

type Retry struct {
	MaxAttempts int    `yaml:"max_attempts"`
	BaseDelay   string `yaml:"base_delay"`
}

// SpecialProvider declares a provider handled by the special-case table
// instead of the generic token-plus-search path.
type SpecialProvider struct {
	SupplierID   string `yaml:"supplier_id"`
	SupplierName string `yaml:"supplier_name"`
	Type         string `yaml:"type"`
	URL          string `yaml:"url"`
}

type System struct {
	Name string `yaml:"name"`

	// ProvidersURL is the directory endpoint listing supplier ids. When
	// empty, EndpointsPath supplies the full descriptors instead.
	ProvidersURL  string `yaml:"providers_url"`
	SearchURL     string `yaml:"search_url"`
	EndpointsPath string `yaml:"endpoints_path"`
	CatalogPath   string `yaml:"catalog_path"`

	OutputPath  string `yaml:"output_path"`
	PageSize    int    `yaml:"page_size"`
	GroupSize   int    `yaml:"group_size"`
	Pace        string `yaml:"pace"`
	Timeout     string `yaml:"timeout"`
	SlowTimeout string `yaml:"slow_timeout"`
	InsecureTLS bool   `yaml:"insecure_tls"`

	Retry   Retry             `yaml:"retry"`
	Special []SpecialProvider `yaml:"special"`
}

type Output struct {
	Path         string `yaml:"path"`
	FallbackPath string `yaml:"fallback_path"`
}

type LocalConfig struct {
	Path string `yaml:"path"`
}

type S3Config struct {
	Bucket         string `yaml:"bucket"`
	Region         string `yaml:"region"`
	Prefix         string `yaml:"prefix"`
	Endpoint       string `yaml:"endpoint"`
	ForcePathStyle bool   `yaml:"force_path_style"`
}

// Archive configures where finished report files are copied after a run.
// An empty type disables archival.
type Archive struct {
	Type        string      `yaml:"type"`
	LocalConfig LocalConfig `yaml:"local"`
	S3Config    S3Config    `yaml:"s3"`
}

type Serve struct {
	Addr     string `yaml:"addr"`
	Interval string `yaml:"interval"`
}

type Numeralia struct {
	Global  Global   `yaml:"global"`
	Systems []System `yaml:"systems"`
	Output  Output   `yaml:"output"`
	Archive Archive  `yaml:"archive"`
	Serve   Serve    `yaml:"serve"`
}

func NewNumeraliaFromFile(fpath string) (*Numeralia, error) {
	bs, err := os.ReadFile(fpath)
	if err != nil {
		return nil, err
	}

	var numeralia Numeralia
	if err := yaml.Unmarshal(bs, &numeralia); err != nil {
		return nil, err
	}

	if len(numeralia.Systems) == 0 {
		return nil, fmt.Errorf("config declares no systems")
	}

	for i, s := range numeralia.Systems {
		if s.Name == "" {
			return nil, fmt.Errorf("system %d has no name", i)
		}
		if s.ProvidersURL == "" && s.EndpointsPath == "" {
			return nil, fmt.Errorf("system %s has neither providers_url nor endpoints_path", s.Name)
		}
	}

	return &numeralia, nil
}
