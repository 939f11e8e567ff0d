package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	configPath  string
	logLevel    string
	metricsFile string
	genomesPath string

	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &globalOptions{stdout: stdout, stderr: stderr}
	root := &cobra.Command{
		Use:           "mccevalctl",
		Short:         "Evaluate stored minimal-criterion coevolution runs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "YAML config overlaid on the built-in defaults")
	flags.StringVar(&opts.logLevel, "log-level", "", "override log.level: debug|info|warn|error")
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "write a text dump of the metrics here on exit")
	flags.StringVar(&opts.genomesPath, "genomes", "", "import this genome JSON lines file into the store first")

	root.AddCommand(
		newEvaluateCmd(opts),
		newNavigateCmd(opts),
		newUpscaleCmd(opts),
		newDiversityCmd(opts),
		newImportCmd(opts),
	)
	return root
}
