// Package config loads the settings of an export run from a YAML or JSON
// file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"session-export/internal/diagnostic"
	"session-export/internal/export"
)

const scopeConfig = "config"

// Environment variables consulted when the file leaves a value empty.
const (
	EnvAPIKey = "FW_API_KEY"
	EnvAPIURL = "FW_API_URL"
)

// DefaultOutputDir receives the audit log unless configured.
const DefaultOutputDir = "output"

// Config is the full set of run settings. Keys follow the gear manifest.
type Config struct {
	SessionID         string `yaml:"session_id"`
	ExportProject     string `yaml:"export_project"`
	ArchiveProject    string `yaml:"archive_project"`
	ArchivePolicy     string `yaml:"archive_policy"`
	MapToDICOM        bool   `yaml:"map_flywheel_to_dicom"`
	ForceExport       bool   `yaml:"force_export"`
	CheckGearRules    bool   `yaml:"check_gear_rules"`
	ExportAttachments bool   `yaml:"export_attachments"`
	LogDebug          bool   `yaml:"log_debug"`
	OutputDir         string `yaml:"output_dir"`
	APIKey            string `yaml:"api_key"`
	APIURL            string `yaml:"api_url"`
	TablePath         string `yaml:"correspondence_table"`
	PolicyPath        string `yaml:"policy_file"`
	LedgerPath        string `yaml:"ledger_path"`
}

// Default returns the settings used before any file or flag is applied.
func Default() Config {
	return Config{
		MapToDICOM:        true,
		ForceExport:       true,
		CheckGearRules:    true,
		ExportAttachments: true,
		LogDebug:          true,
		OutputDir:         DefaultOutputDir,
	}
}

// gearFile is the shape of a gear config.json: settings under "config",
// the session as the run destination.
type gearFile struct {
	Config      yaml.Node `yaml:"config"`
	Destination struct {
		ID   string `yaml:"id"`
		Type string `yaml:"type"`
	} `yaml:"destination"`
}

// Load reads path (if not empty) over the defaults, then fills the API
// settings from getEnv. A nil getEnv reads the process environment.
func Load(path string, getEnv func(string) string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config: %w", err)
		}

		if err := Parse(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	cfg.ApplyEnv(getEnv)

	return cfg, nil
}

// Parse decodes data into cfg. Both a flat settings document and the gear
// layout with a "config" section are accepted; JSON is valid YAML.
func Parse(data []byte, cfg *Config) error {
	var gear gearFile
	if err := yaml.Unmarshal(data, &gear); err != nil {
		return err
	}

	if gear.Config.Kind == 0 {
		return yaml.Unmarshal(data, cfg)
	}

	if err := gear.Config.Decode(cfg); err != nil {
		return err
	}

	if cfg.SessionID == "" && gear.Destination.Type == "session" {
		cfg.SessionID = gear.Destination.ID
	}

	return nil
}

// ApplyEnv fills empty API settings from the environment.
func (c *Config) ApplyEnv(getEnv func(string) string) {
	if getEnv == nil {
		getEnv = os.Getenv
	}

	if c.APIKey == "" {
		c.APIKey = getEnv(EnvAPIKey)
	}

	if c.APIURL == "" {
		c.APIURL = getEnv(EnvAPIURL)
	}
}

// Validate collects every problem with c.
func (c *Config) Validate() *diagnostic.Diagnostics {
	res := &diagnostic.Diagnostics{}

	if c.SessionID == "" {
		res.AddError("missing_session", "no session to export", scopeConfig, "session_id")
	}

	switch {
	case c.ExportProject == "":
		res.AddError("missing_export_project", "export project is required", scopeConfig, "export_project")
	case !isProjectPath(c.ExportProject):
		res.AddError("invalid_project_path",
			fmt.Sprintf("export project %q is not group/project", c.ExportProject), scopeConfig, "export_project")
	}

	if c.ArchiveProject != "" && !isProjectPath(c.ArchiveProject) {
		res.AddError("invalid_project_path",
			fmt.Sprintf("archive project %q is not group/project", c.ArchiveProject), scopeConfig, "archive_project")
	}

	policy, err := export.ParseArchivePolicy(c.ArchivePolicy)

	switch {
	case err != nil:
		res.AddErrorWithSuggestions("invalid_archive_policy", err.Error(), scopeConfig, "archive_policy",
			[]string{export.ArchiveCopy.String(), export.ArchiveLeave.String()})
	case c.ArchiveProject != "" && policy == export.ArchiveUnset:
		res.AddError("missing_archive_policy", "archive project is set but archive_policy is not", scopeConfig, "archive_policy")
	case c.ArchiveProject == "" && policy == export.ArchiveCopy:
		res.AddError("missing_archive_project",
			fmt.Sprintf("archive_policy %s needs archive_project", policy), scopeConfig, "archive_project")
	}

	if c.ArchiveProject != "" && c.ArchiveProject == c.ExportProject {
		res.AddError("conflicting_projects", "archive and export project are the same", scopeConfig, "archive_project")
	}

	if c.APIKey == "" {
		res.AddError("missing_api_key", "no API key given (flag, config or "+EnvAPIKey+")", scopeConfig, "api_key")
	}

	if c.OutputDir == "" {
		res.AddWarning("empty_output_dir", "output_dir is empty; writing the log to the working directory", scopeConfig, "output_dir")
	}

	return res
}

// Options converts a validated config into export options. The error is
// an *export.ConfigurationError carrying every validation problem.
func (c *Config) Options() (export.Options, error) {
	if err := c.Validate().Error(); err != nil {
		return export.Options{}, &export.ConfigurationError{Err: err}
	}

	policy, err := export.ParseArchivePolicy(c.ArchivePolicy)
	if err != nil {
		return export.Options{}, &export.ConfigurationError{Err: err}
	}

	return export.Options{
		SessionID:         c.SessionID,
		ExportProject:     c.ExportProject,
		ArchiveProject:    c.ArchiveProject,
		ArchivePolicy:     policy,
		ForceExport:       c.ForceExport,
		CheckGearRules:    c.CheckGearRules,
		ExportAttachments: c.ExportAttachments,
		OutputDir:         c.OutputDir,
	}, nil
}

func isProjectPath(s string) bool {
	group, project, ok := strings.Cut(s, "/")
	return ok && group != "" && project != "" && !strings.Contains(project, "/")
}

// ErrNoConfig is returned by FindFile when no candidate exists.
var ErrNoConfig = errors.New("no config file found")

// FindFile returns the first existing path among candidates.
func FindFile(candidates ...string) (string, error) {
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", ErrNoConfig
}
