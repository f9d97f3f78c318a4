// Package config loads the static, per-stage job templates and poll
// intervals the supervisor is started with. The file is parsed once at
// startup into an immutable Config value and passed into components by
// reference.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// StageTemplate is one entry of the top-level stage-name-to-template
// mapping. JOB_NAME, DATA_VOLUME_NAME, and SSH_VOLUME_NAME are base names;
// the job template binder appends the lowercased run id to each.
type StageTemplate struct {
	JobName        string   `json:"JOB_NAME"`
	DataVolumeName string   `json:"DATA_VOLUME_NAME"`
	SSHVolumeName  string   `json:"SSH_VOLUME_NAME"`
	CommandLine    []string `json:"COMMAND_LINE"`
	DataMountPath  string   `json:"DATA_MOUNT_PATH"`
	SubPath        string   `json:"SUB_PATH"`
	AdditionalPath string   `json:"ADDITIONAL_PATH"`
	Image          string   `json:"IMAGE"`
	Namespace      string   `json:"NAMESPACE"`
}

// Clone returns a deep copy, so binding a job for one run never mutates
// the template another run will read next tick.
func (t StageTemplate) Clone() StageTemplate {
	clone := t
	clone.CommandLine = append([]string(nil), t.CommandLine...)
	return clone
}

// Config is the immutable, fully parsed supervisor configuration.
type Config struct {
	Stages         map[string]StageTemplate
	PollShortSleep time.Duration
	PollLongSleep  time.Duration
	// GeoTiffSuccessor picks which Mbtiles zoom-level stage follows
	// GeoTiff on success. Defaults to Mbtiles0_9.
	GeoTiffSuccessor string
}

// Load reads and parses the stage-template configuration file. Recognized
// top-level keys are POLL_SHORT_SLEEP and POLL_LONG_SLEEP (seconds); every
// other top-level key is treated as a stage name mapping to a StageTemplate.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %q: %w", path, err)
	}

	var generic map[string]json.RawMessage
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("parsing config %q: %w", path, err)
	}

	cfg := &Config{Stages: make(map[string]StageTemplate)}
	for key, raw := range generic {
		switch key {
		case "POLL_SHORT_SLEEP":
			var seconds int
			if err := json.Unmarshal(raw, &seconds); err != nil {
				return nil, fmt.Errorf("parsing POLL_SHORT_SLEEP: %w", err)
			}
			cfg.PollShortSleep = time.Duration(seconds) * time.Second
		case "POLL_LONG_SLEEP":
			var seconds int
			if err := json.Unmarshal(raw, &seconds); err != nil {
				return nil, fmt.Errorf("parsing POLL_LONG_SLEEP: %w", err)
			}
			cfg.PollLongSleep = time.Duration(seconds) * time.Second
		case "GEOTIFF_SUCCESSOR":
			if err := json.Unmarshal(raw, &cfg.GeoTiffSuccessor); err != nil {
				return nil, fmt.Errorf("parsing GEOTIFF_SUCCESSOR: %w", err)
			}
		default:
			var tmpl StageTemplate
			if err := json.Unmarshal(raw, &tmpl); err != nil {
				return nil, fmt.Errorf("parsing stage template %q: %w", key, err)
			}
			cfg.Stages[key] = tmpl
		}
	}

	if cfg.PollShortSleep == 0 {
		return nil, fmt.Errorf("config %q: POLL_SHORT_SLEEP is required", path)
	}
	if cfg.PollLongSleep == 0 {
		return nil, fmt.Errorf("config %q: POLL_LONG_SLEEP is required", path)
	}
	if cfg.GeoTiffSuccessor == "" {
		cfg.GeoTiffSuccessor = "Mbtiles0_9"
	}

	return cfg, nil
}

// StageTemplate looks up the template for a stage key, returning an error
// if the config file carries no entry for it.
func (c *Config) StageTemplate(key string) (StageTemplate, error) {
	tmpl, ok := c.Stages[key]
	if !ok {
		return StageTemplate{}, fmt.Errorf("no job template configured for stage %q", key)
	}
	return tmpl.Clone(), nil
}
