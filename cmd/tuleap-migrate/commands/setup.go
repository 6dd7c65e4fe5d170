// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/kavirubc
// Created: 2026-10-12
// Last Modified: 2026-10-13

package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/similigh/tuleap-migrate/internal/core/config"
	"github.com/similigh/tuleap-migrate/internal/core/state"
	"github.com/similigh/tuleap-migrate/internal/credential"
	"github.com/similigh/tuleap-migrate/internal/integrations/github"
	"github.com/similigh/tuleap-migrate/internal/integrations/tuleap"
	"github.com/similigh/tuleap-migrate/internal/logger"
	"github.com/similigh/tuleap-migrate/internal/utils/retry"
)

const (
	lockFileName = ".migrate.lock"
	logFileName  = "tuleap-migrate.log"
)

// runtime is what every command needs once configuration is loaded.
type runtime struct {
	cfg   *config.Config
	log   zerolog.Logger
	level string
}

// loadRuntime finds, loads and validates the configuration, then sets up logging.
func loadRuntime(ctx context.Context) (*runtime, error) {
	path := config.FindConfigPath(viper.GetString("config"))
	if path == "" {
		return nil, fmt.Errorf("no configuration file found (use --config or create tuleap-migrate.yaml)")
	}

	cfg, err := config.LoadWithInheritance(path, config.LocalFetcher(filepath.Dir(path), remoteFetcher(ctx)))
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s:\n%w", path, err)
	}

	level := cfg.Logging.Level
	if v := viper.GetString("log-level"); v != "" {
		level = v
	}
	if viper.GetBool("verbose") {
		level = "debug"
	}
	format := cfg.Logging.Format
	if v := viper.GetString("log-format"); v != "" {
		format = v
	}

	rt := &runtime{cfg: cfg, level: level, log: logger.New(level, format)}
	rt.log.Debug().Str("config", path).Msg("configuration loaded")
	return rt, nil
}

// remoteFetcher resolves "org/repo@branch[:path]" extends references on GitHub.
func remoteFetcher(ctx context.Context) func(ref string) ([]byte, error) {
	return func(ref string) ([]byte, error) {
		org, repo, branch, path, err := config.ParseExtendsRef(ref)
		if err != nil {
			return nil, err
		}

		token := os.Getenv("GITHUB_TOKEN")
		if token == "" {
			token, _ = credential.GitHubToken()
		}
		if token == "" {
			return nil, fmt.Errorf("a GitHub token is required to fetch remote config %s", ref)
		}

		gh, err := github.NewClient(ctx, token)
		if err != nil {
			return nil, err
		}
		return gh.GetFileContent(ctx, org, repo, branch, path)
	}
}

// logToFile sends logs to path until the returned function is called. The
// progress view owns the terminal meanwhile.
func (rt *runtime) logToFile(path string) (func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	prev := rt.log
	rt.log = logger.NewWithWriter(f, rt.level, "json")
	return func() {
		rt.log = prev
		log.Logger = prev
		f.Close()
	}, nil
}

func retryConfig(cfg *config.Config) retry.Config {
	rc := retry.DefaultConfig()
	rc.MaxRetries = cfg.Retry.MaxRetries
	rc.BaseDelay = cfg.Retry.BaseDelay
	rc.MaxDelay = cfg.Retry.MaxDelay
	return rc
}

func newSource(cfg *config.Config) (*tuleap.Client, error) {
	opts := []tuleap.Option{
		tuleap.WithTimeout(cfg.Source.Timeout),
		tuleap.WithRetry(retryConfig(cfg)),
	}
	if cfg.Source.AccessKey != "" {
		opts = append(opts, tuleap.WithAccessKey(cfg.Source.AccessKey))
	}
	return tuleap.NewClient(cfg.Source.URL, cfg.Source.Tracker, opts...)
}

func newGitHub(ctx context.Context, cfg *config.Config) (*github.Client, error) {
	token := cfg.ResolveToken(credential.GitHubToken)
	if token == "" {
		return nil, fmt.Errorf("no GitHub token: set target.token, GITHUB_TOKEN or run 'tuleap-migrate auth login'")
	}
	return github.NewClient(ctx, token,
		github.WithTimeout(cfg.Target.Timeout),
		github.WithGraphQLURL(cfg.Target.GraphQLURL),
		github.WithRetry(retryConfig(cfg)),
	)
}

func openLedger(cfg *config.Config) (*state.SQLiteLedger, error) {
	ledger, err := state.OpenSQLite(cfg.Migration.Ledger)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger %s: %w", cfg.Migration.Ledger, err)
	}
	return ledger, nil
}

// acquireLock takes the exclusive run lock on the attachments root.
func acquireLock(cfg *config.Config) (*flock.Flock, error) {
	root := cfg.Migration.AttachmentsRoot
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating attachments root: %w", err)
	}

	lock := flock.New(filepath.Join(root, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring run lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another migration is running against %s", root)
	}
	return lock, nil
}

// resolveRun returns the run with id, or the latest run when id is empty.
func resolveRun(ctx context.Context, ledger state.Ledger, id string) (*state.Run, error) {
	var (
		run *state.Run
		err error
	)
	if id == "" {
		run, err = ledger.LatestRun(ctx)
	} else {
		run, err = ledger.GetRun(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	if run == nil {
		if id == "" {
			return nil, fmt.Errorf("no runs recorded yet, run 'tuleap-migrate assemble' first")
		}
		return nil, fmt.Errorf("run %s not found", id)
	}
	return run, nil
}
