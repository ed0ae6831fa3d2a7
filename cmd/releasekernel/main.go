// Command releasekernel is the thin outer program around the kernel
// package: it loads releaserc.toml, builds the kernel, runs it, and maps
// any returned error to a nonzero exit code (SPEC_FULL.md §2).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/releasekernel/builtin"
	"github.com/GoCodeAlone/releasekernel/config"
	"github.com/GoCodeAlone/releasekernel/external"
	"github.com/GoCodeAlone/releasekernel/kernel"
	"github.com/GoCodeAlone/releasekernel/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "releasekernel",
		Short: "Runs a configured release pipeline",
	}

	run := &cobra.Command{
		Use:   "run",
		Short: "Build the kernel from releaserc.toml and execute the release pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(configPath)
		},
	}
	run.Flags().StringVar(&configPath, "config", "releaserc.toml", "path to the pipeline configuration file")

	root.AddCommand(run)
	return root
}

func runPipeline(configPath string) error {
	logger := logging.New("releasekernel")

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load configuration", "path", configPath, "error", err)
		return fmt.Errorf("load config: %w", err)
	}

	resolver := kernel.NewResolver()
	resolver.Register("builtin:env-guard", builtin.EnvGuardFactory)
	resolver.Register("builtin:noop-notify", builtin.NoopNotifyFactory)
	resolver.Register("external", external.Factory)

	k, err := kernel.NewKernelBuilder(cfg, resolver, logger).Build()
	if err != nil {
		logger.Error("failed to build kernel", "error", err)
		return fmt.Errorf("build kernel: %w", err)
	}

	if err := k.Run(); err != nil {
		logger.Error("release run failed", "error", err)
		return fmt.Errorf("run: %w", err)
	}

	logger.Info("release run completed")
	return nil
}
