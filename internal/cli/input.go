// Package cli turns command-line arguments into an export run and maps
// its outcome to an exit code.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"session-export/internal/config"
	"session-export/internal/export"
)

const (
	ExitSuccess           = 0
	ExitInternalError     = 1
	ExitInvalidInvocation = 2
	ExitConfigError       = 3
	ExitPreflightError    = 4
	ExitFatalAPIError     = 5
)

// ConfigCandidates are tried when -config is not given.
var ConfigCandidates = []string{"config.yaml", "config.json"}

// Invocation is a parsed command line: an optional config file plus the
// flags that were set explicitly.
type Invocation struct {
	ConfigPath string
	overrides  []func(*config.Config)
}

type InvocationError struct {
	ExitCode int
	Message  string
}

func (e *InvocationError) Error() string {
	if e == nil {
		return ""
	}

	return e.Message
}

func invalidInvocationf(format string, args ...any) error {
	return &InvocationError{ExitCode: ExitInvalidInvocation, Message: fmt.Sprintf(format, args...)}
}

// stringFlags bind flag names to string settings.
var stringFlags = []struct {
	name, usage string
	field       func(*config.Config) *string
}{
	{"session", "ID of the session to export", func(c *config.Config) *string { return &c.SessionID }},
	{"export-project", "destination project as group/project", func(c *config.Config) *string { return &c.ExportProject }},
	{"archive-project", "archive project as group/project", func(c *config.Config) *string { return &c.ArchiveProject }},
	{"archive-policy", "copy-to-archive or leave-in-place", func(c *config.Config) *string { return &c.ArchivePolicy }},
	{"output", "directory for the export log", func(c *config.Config) *string { return &c.OutputDir }},
	{"api-key", "platform API key (default $" + config.EnvAPIKey + ")", func(c *config.Config) *string { return &c.APIKey }},
	{"api-url", "platform API URL (default derived from the key)", func(c *config.Config) *string { return &c.APIURL }},
	{"table", "correspondence table YAML file", func(c *config.Config) *string { return &c.TablePath }},
	{"policy", "preflight Rego policy file", func(c *config.Config) *string { return &c.PolicyPath }},
	{"ledger", "SQLite upload ledger (default in memory)", func(c *config.Config) *string { return &c.LedgerPath }},
}

var boolFlags = []struct {
	name, usage string
	field       func(*config.Config) *bool
}{
	{"map-flywheel-to-dicom", "write hierarchy metadata into DICOM headers", func(c *config.Config) *bool { return &c.MapToDICOM }},
	{"force-export", "export sessions already tagged EXPORTED", func(c *config.Config) *bool { return &c.ForceExport }},
	{"check-gear-rules", "abort when the export project has enabled gear rules", func(c *config.Config) *bool { return &c.CheckGearRules }},
	{"export-attachments", "copy session attachments", func(c *config.Config) *bool { return &c.ExportAttachments }},
	{"log-debug", "log debug output", func(c *config.Config) *bool { return &c.LogDebug }},
}

// ParseInvocation parses args. Only flags present in args override the
// config file; the rest keep the file or default values.
func ParseInvocation(args []string) (Invocation, error) {
	fs := flag.NewFlagSet("session-export", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	defaults := config.Default()
	strs := make(map[string]*string, len(stringFlags))
	bools := make(map[string]*bool, len(boolFlags))

	var inv Invocation

	fs.StringVar(&inv.ConfigPath, "config", "", "YAML or JSON config file")

	for _, f := range stringFlags {
		strs[f.name] = fs.String(f.name, *f.field(&defaults), f.usage)
	}

	for _, f := range boolFlags {
		bools[f.name] = fs.Bool(f.name, *f.field(&defaults), f.usage)
	}

	if err := fs.Parse(args); err != nil {
		return Invocation{}, invalidInvocationf("%v", err)
	}

	if fs.NArg() != 0 {
		return Invocation{}, invalidInvocationf("unexpected positional arguments: %q", strings.Join(fs.Args(), " "))
	}

	fs.Visit(func(fl *flag.Flag) {
		for _, f := range stringFlags {
			if f.name == fl.Name {
				v, field := *strs[f.name], f.field
				inv.overrides = append(inv.overrides, func(c *config.Config) { *field(c) = v })
			}
		}

		for _, f := range boolFlags {
			if f.name == fl.Name {
				v, field := *bools[f.name], f.field
				inv.overrides = append(inv.overrides, func(c *config.Config) { *field(c) = v })
			}
		}
	})

	return inv, nil
}

// Config resolves the settings: defaults, then the config file, then the
// explicit flags, then the environment for API settings still empty.
func (inv Invocation) Config(getEnv func(string) string) (config.Config, error) {
	path := inv.ConfigPath
	if path == "" {
		found, err := config.FindFile(ConfigCandidates...)
		if err == nil {
			path = found
		}
	}

	cfg, err := config.Load(path, getEnv)
	if err != nil {
		return cfg, &export.ConfigurationError{Err: err}
	}

	for _, o := range inv.overrides {
		o(&cfg)
	}

	cfg.ApplyEnv(getEnv)

	return cfg, nil
}

// Overrides reports how many flags were set explicitly.
func (inv Invocation) Overrides() int {
	return len(inv.overrides)
}

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var (
		invErr   *InvocationError
		cfgErr   *export.ConfigurationError
		preErr   *export.PreflightError
		fatalErr *export.FatalAPIError
	)

	switch {
	case errors.As(err, &invErr):
		if invErr.ExitCode != 0 {
			return invErr.ExitCode
		}

		return ExitInvalidInvocation
	case errors.As(err, &cfgErr):
		return ExitConfigError
	case errors.As(err, &preErr):
		return ExitPreflightError
	case errors.As(err, &fatalErr):
		return ExitFatalAPIError
	default:
		return ExitInternalError
	}
}
