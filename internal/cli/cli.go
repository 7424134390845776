// Package cli implements the front50store command line on top of the object service.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"front50store/internal/app"
	"front50store/internal/identity"
	"front50store/internal/logging"
	"front50store/internal/objects"
	"front50store/internal/state"
)

type rootOptions struct {
	configPath string
	envFile    string
	user       string
}

// Run executes the command line with args and returns the first error.
func Run(args []string) error {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	return cmd.Execute()
}

func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	defaultConfigPath, err := state.ConfigPath()
	if err != nil {
		defaultConfigPath = "config.toml"
	}

	root := &cobra.Command{
		Use:           "front50store",
		Short:         "Inspect and edit platform objects kept in an S3-compatible bucket",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfigPath, "path to config file")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "optional dotenv file loaded before config")
	root.PersistentFlags().StringVar(&opts.user, "user", "", "user recorded as lastModifiedBy on writes")

	root.AddCommand(
		newEnsureBucketCommand(opts),
		newTypesCommand(),
		newListCommand(opts),
		newGetCommand(opts),
		newPutCommand(opts),
		newDeleteCommand(opts),
	)
	return root
}

// withService opens the configured backend for the duration of fn.
func withService(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, svc *objects.Service) error) error {
	cfg, err := app.LoadConfig(opts.configPath, opts.envFile)
	if err != nil {
		return err
	}
	logger := logging.SetupWithWriter(cfg.Environment, cmd.ErrOrStderr())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = identity.WithUser(ctx, opts.user)

	svc, err := app.OpenService(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer svc.Close()
	return fn(ctx, svc)
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(args[0])
}
