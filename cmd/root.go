// Package cmd wires the queryline CLI: flag parsing, logger setup, and the
// handoff into the interactive program.
package cmd

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/queryline/internal/config"
	"github.com/oakwood-commons/queryline/internal/ui"
	"github.com/oakwood-commons/queryline/pkg/logger"
	"github.com/oakwood-commons/queryline/pkg/settings"
)

var (
	fieldsFile     string
	debug          bool
	quiet          bool
	noColor        bool
	renderSnapshot bool
	snapshotWidth  int
	snapshotHeight int
)

var rootCtx = context.Background()

var rootCmd = &cobra.Command{
	Use:   settings.CliBinaryName + " [query]",
	Short: settings.CliBinaryName + " - structured search input for the terminal",
	Long: settings.CliBinaryName + ` is an interactive search input that turns free typing into
structured field:operator:value filter tokens, with suggestions,
inline validation, and token-level editing.

Field definitions come from a YAML or TOML file passed via --fields;
without one a built-in demo set (status, assignee, estimate, due,
label) is used.`,
	Example: "\n  " + settings.CliBinaryName + "\n  " +
		settings.CliBinaryName + " 'status:is:open assignee:is:alex'\n  " +
		settings.CliBinaryName + " --fields fields.yaml\n  " +
		settings.CliBinaryName + " --snapshot --width 100 'status:is:open'\n",
	Args: cobra.ArbitraryArgs,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		var level int8
		if debug {
			level = -1
		}
		lgr := logger.Get(level)
		lgr = logger.WithValues(lgr, logger.RootCommandKey, settings.CliBinaryName, logger.SubCommandKey, cmd.Name())
		rootCtx = logger.WithLogger(context.Background(), lgr)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		params := runParams(args)

		if renderSnapshot {
			width, height := resolveSnapshotSize(snapshotWidth, snapshotHeight)
			view, err := ui.Snapshot(params, width, height)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), view)
			return nil
		}

		opts, cleanup := getProgramOptions()
		defer cleanup()

		lgr := logger.FromContext(rootCtx)
		return ui.Run(params, lgr, opts...)
	},
}

// runParams folds the parsed flags and the positional query into a Run.
func runParams(args []string) *settings.Run {
	params := settings.NewCliParams()
	params.FieldsPath = fieldsFile
	params.NoColor = noColor
	params.IsQuiet = quiet
	if debug {
		params.MinLogLevel = -1
	}
	params.InitialQuery = strings.TrimSpace(strings.Join(args, " "))
	return params
}

// resolveSnapshotSize fills missing snapshot dimensions from the detected
// terminal size, falling back to 80x24.
func resolveSnapshotSize(flagWidth, flagHeight int) (int, int) {
	width := flagWidth
	height := flagHeight
	if width <= 0 || height <= 0 {
		w, h := detectTerminalSize()
		if width <= 0 && w > 0 {
			width = w
		}
		if height <= 0 && h > 0 {
			height = h
		}
	}
	if width <= 0 {
		width = 80
	}
	if height <= 0 {
		height = 24
	}
	return width, height
}

func cliVersionString() string {
	return fmt.Sprintf("%s %s (commit %s, built %s, go %s)",
		settings.CliBinaryName,
		settings.VersionInformation.BuildVersion,
		settings.VersionInformation.Commit,
		settings.VersionInformation.BuildTime,
		runtime.Version())
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print " + settings.CliBinaryName + " version",
	RunE: func(cmd *cobra.Command, _ []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), cliVersionString())
		return nil
	},
}

// fieldsCmd prints the effective field definitions as YAML so users can
// bootstrap their own --fields file from the built-in demo set.
var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "Print the effective field definitions as YAML",
	RunE: func(cmd *cobra.Command, _ []string) error {
		fields := ui.DemoFields()
		if fieldsFile != "" {
			loaded, err := config.Load(fieldsFile)
			if err != nil {
				return err
			}
			fields = loaded
		}
		out, err := yaml.Marshal(fields)
		if err != nil {
			return fmt.Errorf("marshal field config: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() { //nolint:gochecknoinits
	rootCmd.Flags().StringVarP(&fieldsFile, "fields", "f", "", "path to a YAML/TOML field-definition file (default: built-in demo fields)")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-essential output")
	rootCmd.Flags().BoolVar(&noColor, "no-color", false, "disable color output")
	rootCmd.Flags().BoolVar(&renderSnapshot, "snapshot", false, "render a single frame and exit (dev/test); honors --width/--height")
	rootCmd.Flags().IntVar(&snapshotWidth, "width", 0, "output width in columns (snapshot mode)")
	rootCmd.Flags().IntVar(&snapshotHeight, "height", 0, "output height in rows (snapshot mode)")
	rootCmd.Version = cliVersionString()
	rootCmd.SetVersionTemplate("{{.Version}}\n")
	rootCmd.AddCommand(versionCmd)

	fieldsCmd.Flags().StringVarP(&fieldsFile, "fields", "f", "", "path to a YAML/TOML field-definition file")
	rootCmd.AddCommand(fieldsCmd)
}

func Execute() error {
	return rootCmd.Execute()
}
