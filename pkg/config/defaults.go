// Copyright 2025 Certen Protocol
//
// Optional YAML defaults layered underneath environment variables.

package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// defaultsFile mirrors a small subset of operator-facing defaults; any
// field present in the environment always takes precedence over this file.
type defaultsFile struct {
	Atlantic struct {
		APIURL string `yaml:"api_url"`
	} `yaml:"atlantic"`
	Server struct {
		MetricsAddr string `yaml:"metrics_addr"`
	} `yaml:"server"`
}

// loadDefaultsFile reads a YAML defaults file if path is non-empty and the
// file exists. A missing path or missing file is not an error: defaults are
// optional convenience, not a required configuration source.
func loadDefaultsFile(path string) (*defaultsFile, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var d defaultsFile
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	return &d, nil
}
