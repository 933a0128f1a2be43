// Command cortexctl is a thin CLI front-end over the cortex client
// package: one cobra.Command tree, a PersistentPreRunE that builds the
// zap logger and the Cortex instance, and verbs that translate
// *cortexerr.Error into a prefixed stderr message and a non-zero exit
// code (spec.md §6 "CLI front-end"; grounded on the teacher's
// cmd/nerd/main.go root-command/PersistentPreRunE shape).
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yeseh/cortex/internal/adapter"
	"github.com/yeseh/cortex/internal/adapter/fsadapter"
	"github.com/yeseh/cortex/internal/client"
	"github.com/yeseh/cortex/internal/config"
	"github.com/yeseh/cortex/internal/cortexerr"
	"github.com/yeseh/cortex/internal/logging"
)

var (
	dataPath string
	verbose  bool
	jsonLogs bool

	cfg    *config.Config
	logger *zap.Logger
	cortex *client.Cortex
)

var rootCmd = &cobra.Command{
	Use:   "cortexctl",
	Short: "cortexctl — a command-line front end for a cortex memory store",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(filepath.Join(dataPath, "cortexctl.yaml"))
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if dataPath != "" {
			cfg.DataPath = dataPath
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		if jsonLogs {
			cfg.Logging.JSON = true
		}

		if err := logging.Init(cfg.Logging.Debug(), cfg.Logging.JSON); err != nil {
			return fmt.Errorf("init logging: %w", err)
		}
		logger = logging.Get(logging.CategoryClient)

		registry, err := fsadapter.NewRegistry(cfg.DataPath)
		if err != nil {
			return fmt.Errorf("open registry: %w", err)
		}
		factory := func(ctx context.Context, name string) (adapter.StorageAdapter, error) {
			return fsadapter.NewForStore(cfg.DataPath, name)
		}
		cortex = client.New(cfg.DataPath, registry.Config(), factory)
		return cortex.Initialize(cmd.Context())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataPath, "data-path", "./cortex-data", "root directory holding config.yaml and every store's data")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "emit structured JSON logs instead of console output")

	rootCmd.AddCommand(storeCmd, categoryCmd, memoryCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fail(err)
	}
}

// fail prints err and exits with a code derived from its cortexerr.Code,
// matching the teacher's practice of never panicking in front-end code
// (spec.md §6).
func fail(err error) {
	if code, ok := cortexerr.CodeOf(err); ok {
		fmt.Fprintf(os.Stderr, "cortexctl: %s: %v\n", code, err)
		os.Exit(exitCodeFor(code))
	}
	fmt.Fprintf(os.Stderr, "cortexctl: %v\n", err)
	os.Exit(1)
}

func exitCodeFor(code cortexerr.Code) int {
	switch code {
	case cortexerr.MemoryNotFound, cortexerr.CategoryNotFound, cortexerr.StoreNotFound, cortexerr.StoreNotInitialized:
		return 2
	case cortexerr.MemoryAlreadyExists, cortexerr.DestinationExists, cortexerr.StoreAlreadyExists, cortexerr.DuplicateStoreName:
		return 3
	case cortexerr.OperationNotPermitted, cortexerr.ContentTooLong, cortexerr.SubcategoryCreationNotAllowed,
		cortexerr.CategoryProtected, cortexerr.RootCategoryRejected, cortexerr.RootCategoryNotAllowed, cortexerr.DescriptionTooLong:
		return 4
	default:
		return 1
	}
}
