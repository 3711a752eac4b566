package config

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/atmolidar/internal/fsutil"
)

// MaxFileSize caps configuration files at 1 MiB.
const MaxFileSize = 1 << 20

// Load reads a configuration file on top of Default and validates it.
// The dialect follows the extension: .json, .yaml and .yml are structured;
// anything else is read as legacy "key = value" lines, where lines starting
// with '#' or '[' are skipped. Keys omitted from the file keep their
// defaults.
func Load(fsys fsutil.FileSystem, path string) (*AnalysisConfig, error) {
	cleanPath := filepath.Clean(path)

	data, err := fsutil.ReadFileLimited(fsys, cleanPath, MaxFileSize)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(cleanPath)); ext {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
		cfg.fillWavelengthDefaults()
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
		cfg.fillWavelengthDefaults()
	default:
		if err := cfg.readKeyValues(data); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", cleanPath, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// readKeyValues applies every "key = value" line through Set. All bad lines
// are reported, not just the first.
func (c *AnalysisConfig) readKeyValues(data []byte) error {
	var errs []error
	sc := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.HasPrefix(line, "#") || strings.HasPrefix(line, "[") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok || strings.TrimSpace(key) == "" {
			continue
		}
		if err := c.Set(key, value); err != nil {
			errs = append(errs, fmt.Errorf("line %d: %w", lineNo, err))
		}
	}
	if err := sc.Err(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
