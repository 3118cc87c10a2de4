package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vk/surveynav/internal/app"
	"github.com/vk/surveynav/internal/surveyhcl"
	"gopkg.in/yaml.v3"
)

// options collects every flag value before it becomes an app.Config.
type options struct {
	logLevel  string
	logFormat string
	answers   string
	textify   bool
	agents    int
	workers   int
	seed      uint64
	scenario  map[string]string
}

// command is an app method run by a subcommand.
type command func(a *app.App, ctx context.Context) error

// Execute parses args and runs the selected command. Command output goes to
// outW, logs and usage errors to errW.
func Execute(ctx context.Context, args []string, outW, errW io.Writer) error {
	root := NewRootCommand(outW, errW)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// NewRootCommand builds the command tree. Each call returns an independent
// tree, so tests may run several in parallel.
func NewRootCommand(outW, errW io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "surveynav",
		Short: "Survey navigation engine: validate, inspect and walk rule-driven surveys",
		Long: `surveynav loads survey definitions written in HCL (questions, navigation
rules, skip/stop rules and memories), checks that their dependency graph
is acyclic, and walks them with scripted or simulated respondents.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(outW)
	root.SetErr(errW)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usageError(err) })

	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")

	newSurveyCommand := func(use, short string, run command) *cobra.Command {
		return &cobra.Command{
			Use:   use + " SURVEY_PATH...",
			Short: short,
			Args:  withUsage(cobra.MinimumNArgs(1)),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runApp(cmd, outW, errW, opts, args, "", run)
			},
		}
	}

	validateCmd := newSurveyCommand("validate", "Load a survey and check its dependency graph", (*app.App).Validate)

	dagCmd := newSurveyCommand("dag", "Print the survey's dependency graph as JSON", (*app.App).DAG)
	dagCmd.Flags().BoolVar(&opts.textify, "text", false, "Key the graph by question name instead of index.")

	walkCmd := newSurveyCommand("walk", "Walk the survey with scripted answers", (*app.App).Walk)
	walkCmd.Flags().StringVarP(&opts.answers, "answers", "a", "", "Path to a YAML or JSON answers file.")

	simulateCmd := newSurveyCommand("simulate", "Walk the survey with many random respondents", (*app.App).Simulate)
	simulateCmd.Flags().IntVar(&opts.agents, "agents", 100, "Number of simulated respondents.")
	simulateCmd.Flags().IntVar(&opts.workers, "workers", 0, "Maximum concurrent sessions. 0 runs all at once.")
	simulateCmd.Flags().Uint64Var(&opts.seed, "seed", 1, "Seed for the respondents' random choices.")
	simulateCmd.Flags().StringToStringVar(&opts.scenario, "scenario", nil, "Scenario values as key=value, visible as scenario.<key>.")

	migrateCmd := &cobra.Command{
		Use:   "migrate RULES_JSON",
		Short: "Rewrite a rule collection file into the current format",
		Args:  withUsage(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(cmd, outW, errW, opts, nil, args[0], (*app.App).Migrate)
		},
	}

	root.AddCommand(validateCmd, dagCmd, walkCmd, simulateCmd, migrateCmd)
	return root
}

func withUsage(args cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, a []string) error {
		return usageError(args(cmd, a))
	}
}

func runApp(cmd *cobra.Command, outW, errW io.Writer, opts *options, surveyPaths []string, rulesPath string, run command) error {
	slog.Debug("CLI parser finished.", "command", cmd.Name())

	scenario, err := parseScenario(opts.scenario)
	if err != nil {
		return usageError(err)
	}
	cfg, err := app.NewConfig(app.Config{
		SurveyPaths: surveyPaths,
		RulesPath:   rulesPath,
		AnswersPath: opts.answers,
		LogLevel:    strings.ToLower(opts.logLevel),
		LogFormat:   strings.ToLower(opts.logFormat),
		Agents:      opts.agents,
		Workers:     opts.workers,
		Seed:        opts.seed,
		Textify:     opts.textify,
		Scenario:    scenario,
	})
	if err != nil {
		return usageError(err)
	}

	return run(app.NewApp(outW, errW, cfg, surveyhcl.NewLoader()), cmd.Context())
}

// parseScenario decodes each value as a YAML scalar so that "true" and "3"
// become a bool and a number.
func parseScenario(raw map[string]string) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		var value any
		if err := yaml.Unmarshal([]byte(v), &value); err != nil {
			return nil, fmt.Errorf("invalid scenario value %s=%q: %w", k, v, err)
		}
		out[k] = value
	}
	return out, nil
}
