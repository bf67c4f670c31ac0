package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	kerrors "github.com/vango-dev/klinecore/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ┬┌─┬  ┬┌┐┌┌─┐┌─┐┌─┐┬─┐┌─┐
  ├┴┐│  ││││├┤ │  │ │├┬┘├┤
  ┴ ┴┴─┘┴┘└┘└─┘└─┘└─┘┴└─└─┘
`

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the root command and reports a failure on stderr in the
// format chosen by --error-format. It returns the process exit code.
func execute(args []string, stdout, stderr io.Writer) int {
	root := rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.Execute()
	if err == nil {
		return 0
	}

	flags := root.PersistentFlags()
	if noColor, _ := flags.GetBool("no-color"); noColor || os.Getenv("NO_COLOR") != "" {
		kerrors.DisableColors()
	}
	if format, _ := flags.GetString("error-format"); format == "json" {
		kerrors.PrintErrorJSON(stderr, err)
	} else {
		kerrors.PrintError(stderr, err)
	}
	return 1
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "klinecore",
		Short: "Incremental candlestick chart engine",
		Long: `klinecore keeps a candlestick chart up to date with a fine-grained
reactive graph.

Candles are fetched by a reactive resource, mapped per timestamp by a
keyed reconciler, and streamed as minimal create/move/remove/update ops
to remote renderers over WebSocket.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringP("config", "c", "", "Config file (default: klinecore.yaml in the working directory, if present)")
	root.PersistentFlags().Bool("no-color", false, "Print errors without ANSI colors (also NO_COLOR)")
	root.PersistentFlags().String("error-format", "text", "Error output format: text or json")

	root.AddCommand(
		serveCmd(),
		demoCmd(),
		diffCmd(),
		versionCmd(),
	)
	return root
}

// printBanner prints the ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}
