package surrealoutline

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/surrealdb/surrealoutline/pkg/logger"
	"github.com/surrealdb/surrealoutline/pkg/models"
	"github.com/surrealdb/surrealoutline/pkg/page"
)

const DefaultDatabaseURL = "sqlite://surrealoutline.db"

// globalFlags are shared by every command and may also be set from the environment.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "database to use: sqlite://<path>, postgres://<dsn> or memory://",
			Value:   DefaultDatabaseURL,
			EnvVars: []string{"OUTLINE_DATABASE_URL", "DATABASE_URL"},
		},
		&cli.DurationFlag{
			Name:    "slow-threshold",
			Usage:   "log statements slower than this at warn level",
			EnvVars: []string{"OUTLINE_SLOW_THRESHOLD"},
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "log verbosity: trace, debug, info, warn, error",
			Value:   "warn",
			EnvVars: []string{"OUTLINE_LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:    "log-file",
			Usage:   "append logs to this file instead of stderr",
			EnvVars: []string{"OUTLINE_LOG_FILE"},
		},
		&cli.BoolFlag{
			Name:    "read-only",
			Usage:   "reject every write to the store",
			EnvVars: []string{"OUTLINE_READ_ONLY"},
		},
		&cli.IntFlag{
			Name:    "cache-size",
			Usage:   "number of built pages kept in memory",
			Value:   page.DefaultCacheSize,
			EnvVars: []string{"OUTLINE_CACHE_SIZE"},
		},
		&cli.IntFlag{
			Name:    "jobs",
			Usage:   "pages built in parallel by check",
			Value:   page.DefaultJobs,
			EnvVars: []string{"OUTLINE_JOBS"},
		},
		&cli.StringFlag{
			Name:    "metrics-file",
			Usage:   "write the Prometheus metrics of the run to this file when the command ends",
			EnvVars: []string{"OUTLINE_METRICS_FILE"},
		},
	}
}

// Parse builds the configuration from the global flags of cctx.
func Parse(cctx *cli.Context) (*Config, error) {
	level, err := logger.ParseLevel(cctx.String("log-level"))
	if err != nil {
		return nil, err
	}
	config := &Config{
		DatabaseURL:   cctx.String("database-url"),
		SlowThreshold: cctx.Duration("slow-threshold"),
		LogLevel:      level,
		LogFile:       cctx.String("log-file"),
		ReadOnly:      cctx.Bool("read-only"),
		CacheSize:     cctx.Int("cache-size"),
		Jobs:          cctx.Int("jobs"),
		MetricsFile:   cctx.String("metrics-file"),
	}
	if config.DatabaseURL == "" {
		return nil, errors.New("database url must not be empty")
	}
	if config.CacheSize < 0 || config.Jobs < 0 {
		return nil, errors.New("cache size and jobs must not be negative")
	}
	return config, nil
}

// loadDotEnv loads .env from the working directory when there is one.
func loadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	if err := godotenv.Load(); err != nil {
		return fmt.Errorf("error loading .env file: %w", err)
	}
	return nil
}

func expectArgs(cctx *cli.Context, n int) error {
	if cctx.NArg() < n {
		return fmt.Errorf("%s: expected arguments %s", cctx.Command.Name, cctx.Command.ArgsUsage)
	}
	return nil
}

func pageArg(cctx *cli.Context, i int) (models.PageID, error) {
	return models.ParsePageID(cctx.Args().Get(i))
}

func blockArg(cctx *cli.Context, i int) (models.BlockID, error) {
	return models.ParseBlockID(cctx.Args().Get(i))
}

// indexFlag returns the --index flag, where a negative value means after the last
// child.
func indexFlag(cctx *cli.Context) int {
	index := cctx.Int("index")
	if index < 0 {
		return math.MaxInt
	}
	return index
}
