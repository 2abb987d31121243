package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"session-export/internal/audit"
	"session-export/internal/config"
	"session-export/internal/dicomfile"
	"session-export/internal/export"
	"session-export/internal/ledger"
	"session-export/internal/mapping"
	"session-export/internal/platform"
	"session-export/internal/platform/httpapi"
	"session-export/internal/policy"
)

// Env is what Execute needs from the process. Zero fields fall back to
// the process environment and stderr.
type Env struct {
	Stderr io.Writer
	Getenv func(string) string
	// Client replaces the HTTP platform client.
	Client platform.Client
}

// Result is the outcome of Execute.
type Result struct {
	ExitCode int
	Summary  *export.Summary
}

// Run parses args and executes them.
func Run(ctx context.Context, args []string, env Env) (Result, error) {
	inv, err := ParseInvocation(args)
	if err != nil {
		return Result{ExitCode: ExitCode(err)}, err
	}

	return Execute(ctx, inv, env)
}

// Execute resolves the configuration, wires the collaborators and runs
// the export. Per-file failures still exit with ExitSuccess.
func Execute(ctx context.Context, inv Invocation, env Env) (Result, error) {
	if env.Stderr == nil {
		env.Stderr = os.Stderr
	}

	if env.Getenv == nil {
		env.Getenv = os.Getenv
	}

	summary, err := execute(ctx, inv, env)

	return Result{ExitCode: ExitCode(err), Summary: summary}, err
}

func execute(ctx context.Context, inv Invocation, env Env) (*export.Summary, error) {
	cfg, err := inv.Config(env.Getenv)
	if err != nil {
		return nil, err
	}

	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}

	logger := export.NewLogger(env.Stderr, cfg.LogDebug)
	logger.Dump("config", redacted(cfg))
	logger.Debugf("%d settings set on the command line", inv.Overrides())

	mapper, err := loadMapper(cfg, logger)
	if err != nil {
		return nil, err
	}

	engine, err := loadPolicy(ctx, cfg.PolicyPath)
	if err != nil {
		return nil, err
	}

	dsn := cfg.LedgerPath
	if dsn == "" {
		dsn = ledger.MemoryDSN
	}

	ldg, err := ledger.Open(dsn)
	if err != nil {
		return nil, &export.ConfigurationError{Err: err}
	}
	defer ldg.Close()

	client := env.Client
	if client == nil {
		if client, err = newHTTPClient(cfg); err != nil {
			return nil, err
		}
	}

	x, err := export.New(opts, export.Deps{
		Client: client,
		Mapper: mapper,
		Policy: engine,
		Ledger: ldg,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	summary, err := x.Run(ctx)
	if summary != nil {
		logger.Infof("export log: %s (%d succeeded, %d skipped, %d failed)", summary.LogPath,
			summary.Count(audit.StatusSuccess), summary.Count(audit.StatusSkipped), summary.Count(audit.StatusFailed))

		if status, serr := ldg.RunStatus(ctx, summary.RunID); serr == nil {
			logger.Debugf("run %s recorded as %q", summary.RunID, status)
		}
	}

	return summary, err
}

func loadMapper(cfg config.Config, logger *export.Logger) (*mapping.Mapper, error) {
	table := mapping.DefaultTable()

	if cfg.TablePath != "" {
		var err error
		if table, err = mapping.LoadFile(cfg.TablePath); err != nil {
			return nil, &export.ConfigurationError{Err: err}
		}
	}

	registry := mapping.DefaultRegistry()
	diags := mapping.Validate(table, registry, dicomfile.KnownKeyword)

	for _, w := range diags.Warnings {
		logger.Warnf("%s", w)
	}

	if err := diags.Error(); err != nil {
		return nil, &export.ConfigurationError{Err: err}
	}

	mapper, err := mapping.NewMapper(cfg.MapToDICOM, table, registry)
	if err != nil {
		return nil, &export.ConfigurationError{Err: err}
	}

	if !mapper.Enabled() {
		logger.Debugf("hierarchy mapping disabled")
		return mapper, nil
	}

	logger.Debugf("hierarchy mapping writes %s", strings.Join(table.Tags(), ", "))

	if data, err := mapping.Marshal(table); err == nil {
		logger.Debugf("correspondence table:\n%s", data)
	}

	return mapper, nil
}

// loadPolicy compiles the rules at path, or the built-in rules when path
// is empty.
func loadPolicy(ctx context.Context, path string) (*policy.Engine, error) {
	engine, err := policy.LoadEngine(ctx, path)
	if err != nil {
		return nil, &export.ConfigurationError{Err: err}
	}

	return engine, nil
}

func newHTTPClient(cfg config.Config) (platform.Client, error) {
	url := cfg.APIURL
	if url == "" {
		var err error
		if url, err = httpapi.BaseURLFromKey(cfg.APIKey); err != nil {
			return nil, &export.ConfigurationError{Err: fmt.Errorf("deriving API URL: %w", err)}
		}
	}

	return httpapi.NewClient(url, cfg.APIKey), nil
}

func redacted(cfg config.Config) config.Config {
	if cfg.APIKey != "" {
		cfg.APIKey = "<redacted>"
	}

	return cfg
}
