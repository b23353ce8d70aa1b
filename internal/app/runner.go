package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/agentlog"
	"github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/config"
	"github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/dashboard"
	clierr "github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/errors"
	"github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/mission"
	"github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/model"
	"github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/out"
	"github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/route"
	"github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/routebook"
	"github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/schema"
	"github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/storage"
	"github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/version"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type Runner struct {
	stdout io.Writer
	stderr io.Writer
	now    func() time.Time
}

func NewRunner() *Runner {
	return NewRunnerWithWriters(os.Stdout, os.Stderr)
}

func NewRunnerWithWriters(stdout, stderr io.Writer) *Runner {
	return &Runner{
		stdout: stdout,
		stderr: stderr,
		now:    time.Now,
	}
}

type runtimeState struct {
	runner      *Runner
	flags       config.GlobalFlags
	settings    config.Settings
	logger      *slog.Logger
	root        *cobra.Command
	lastCommand string

	store     *storage.Store
	release   func()
	engine    *mission.Engine
	routes    *routebook.Book
	logs      *agentlog.Registry
	dashboard *dashboard.Service
	scorer    *route.Scorer
}

func (r *Runner) Run(args []string) int {
	state := &runtimeState{runner: r}
	root := state.newRootCommand()
	state.root = root
	root.SetArgs(args)
	root.SetOut(r.stdout)
	root.SetErr(r.stderr)
	root.SilenceUsage = true
	root.SilenceErrors = true

	err := root.Execute()
	err = normalizeRunError(err)
	defer state.close()
	if err == nil {
		return 0
	}

	state.renderError("", err)
	return clierr.ExitCode(err)
}

func (s *runtimeState) newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   version.CLIName,
		Short: "Bridge mission tracker and dashboard engine",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" {
				return nil
			}
			settings, err := config.Load(s.flags)
			if err != nil {
				return clierr.Wrap(clierr.CodeUsage, "load configuration", err)
			}
			s.settings = settings
			s.logger = slog.New(slog.NewTextHandler(s.runner.stderr, &slog.HandlerOptions{Level: settings.LogLevel}))

			path := trimRootPath(cmd.CommandPath())
			s.lastCommand = path
			if !needsStore(path) {
				return nil
			}
			return s.open(path)
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return clierr.Wrap(clierr.CodeUsage, "parse flags", err)
	})

	cmd.PersistentFlags().BoolVar(&s.flags.JSON, "json", false, "Output JSON (default)")
	cmd.PersistentFlags().BoolVar(&s.flags.Plain, "plain", false, "Output plain text")
	cmd.PersistentFlags().StringVar(&s.flags.Select, "select", "", "Select fields from data (comma-separated, dotted paths allowed)")
	cmd.PersistentFlags().BoolVar(&s.flags.ResultsOnly, "results-only", false, "Output only data payload")
	cmd.PersistentFlags().StringVar(&s.flags.User, "user", "", "Resolved user identity owning the missions")
	cmd.PersistentFlags().BoolVar(&s.flags.Verbose, "verbose", false, "Enable debug logging on stderr")
	cmd.PersistentFlags().StringVar(&s.flags.ConfigPath, "config", "", "Path to config file")

	cmd.AddCommand(s.newMissionsCommand())
	cmd.AddCommand(s.newDashboardCommand())
	cmd.AddCommand(s.newRoutesCommand())
	cmd.AddCommand(s.newAgentCommand())
	cmd.AddCommand(s.newSchemaCommand())
	cmd.AddCommand(newVersionCommand())

	return cmd
}

func newVersionCommand() *cobra.Command {
	var long bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print CLI version",
		Run: func(cmd *cobra.Command, args []string) {
			if long {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.Long())
				return
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.CLIVersion)
		},
	}
	cmd.Flags().BoolVar(&long, "long", false, "Print extended build metadata")
	return cmd
}

func (s *runtimeState) newSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema [command path]",
		Short: "Print machine-readable command schema",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := schema.Build(s.root, strings.Join(args, " "))
			if err != nil {
				return err
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), data)
		},
	}
}

// open wires the engine and registries and restores the user's partition
// from the persistence collaborator. Restored records are re-validated.
// Mutating commands hold the store lock from before the load until close.
func (s *runtimeState) open(commandPath string) error {
	store, err := storage.Open(s.settings.StorePath, s.settings.StoreLockPath, s.logger)
	if err != nil {
		return err
	}
	s.store = store
	if mutates(commandPath) {
		ctx, cancel := s.commandContext()
		release, err := store.Lock(ctx)
		cancel()
		if err != nil {
			return err
		}
		s.release = release
	}
	clock := func() time.Time { return s.runner.now().UTC() }
	s.engine = mission.NewEngine(mission.NewStore(), mission.WithClock(clock))
	s.routes = routebook.New(clock)
	s.logs = agentlog.NewRegistry(clock)
	s.scorer = route.NewScorer(s.settings.Policy.Risk)
	s.dashboard = dashboard.NewService(s.engine.Store(), s.routes, s.logs, s.settings.Policy)

	user := s.settings.UserID
	missions, err := store.LoadMissions(user)
	if err != nil {
		return err
	}
	if err := s.engine.Store().Restore(user, missions); err != nil {
		return clierr.Wrap(clierr.CodeInternal, "restore missions", err)
	}
	routes, err := store.LoadRoutes(user)
	if err != nil {
		return err
	}
	if err := s.routes.Restore(user, routes); err != nil {
		return clierr.Wrap(clierr.CodeInternal, "restore saved routes", err)
	}
	logs, err := store.LoadLogs(user)
	if err != nil {
		return err
	}
	if err := s.logs.Restore(user, logs); err != nil {
		return clierr.Wrap(clierr.CodeInternal, "restore agent logs", err)
	}
	s.logger.Debug("partition restored", "user", user, "missions", len(missions), "routes", len(routes), "logs", len(logs))
	return nil
}

func (s *runtimeState) close() {
	if s.release != nil {
		s.release()
		s.release = nil
	}
	if s.store != nil {
		_ = s.store.Close()
		s.store = nil
	}
}

func (s *runtimeState) user() string {
	return s.settings.UserID
}

func (s *runtimeState) emitSuccess(commandPath string, data any) error {
	env := model.Envelope{
		Version: model.EnvelopeVersion,
		Success: true,
		Data:    data,
		Error:   nil,
		Meta:    s.meta(commandPath),
	}
	return out.Render(s.runner.stdout, env, s.settings)
}

func (s *runtimeState) meta(commandPath string) model.EnvelopeMeta {
	m := model.EnvelopeMeta{
		RequestID: newRequestID(),
		Timestamp: s.runner.now().UTC(),
		Command:   commandPath,
		UserID:    s.settings.UserID,
	}
	if s.engine != nil {
		m.Version = s.engine.Store().Version(s.settings.UserID)
	}
	return m
}

func (s *runtimeState) renderError(commandPath string, err error) {
	if strings.TrimSpace(commandPath) == "" {
		commandPath = s.lastCommand
		if commandPath == "" {
			commandPath = version.CLIName
		}
	}
	code := clierr.ExitCode(err)
	typ := clierr.CodeInternal.Kind()
	message := err.Error()
	if cErr, ok := clierr.As(err); ok {
		message = cErr.Message
		if cErr.Cause != nil {
			message = fmt.Sprintf("%s: %v", cErr.Message, cErr.Cause)
		}
		typ = cErr.Code.Kind()
	}
	if s.logger != nil {
		s.logger.Debug("command failed", "command", commandPath, "type", typ, "error", message)
	}

	settings := s.settings
	if settings.OutputMode == "" {
		settings.OutputMode = "json"
	}
	settings.ResultsOnly = false
	settings.SelectFields = nil
	env := model.Envelope{
		Version: model.EnvelopeVersion,
		Success: false,
		Data:    []any{},
		Error: &model.ErrorBody{
			Code:    code,
			Type:    typ,
			Message: message,
		},
		Meta: s.meta(commandPath),
	}
	_ = out.Render(s.runner.stderr, env, settings)
}

func (s *runtimeState) commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

func newRequestID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func splitCSV(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		norm := strings.ToLower(strings.TrimSpace(part))
		if norm != "" {
			out = append(out, norm)
		}
	}
	return out
}

func trimRootPath(path string) string {
	parts := strings.Fields(path)
	if len(parts) <= 1 {
		return path
	}
	return strings.Join(parts[1:], " ")
}

func normalizeRunError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := clierr.As(err); ok {
		return err
	}
	if isLikelyUsageError(err) {
		return clierr.Wrap(clierr.CodeUsage, "invalid command input", err)
	}
	return clierr.Wrap(clierr.CodeInternal, "execute command", err)
}

func isLikelyUsageError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	patterns := []string{
		"unknown command",
		"unknown flag",
		"required flag(s)",
		"flag needs an argument",
		"requires at least",
		"requires exactly",
		"accepts ",
		"invalid argument",
		"invalid args",
	}
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

func needsStore(commandPath string) bool {
	switch normalizeCommandPath(commandPath) {
	case "", "version", "schema", "missions", "dashboard", "routes", "agent":
		return false
	default:
		return true
	}
}

func mutates(commandPath string) bool {
	switch normalizeCommandPath(commandPath) {
	case "missions create", "missions event", "missions star",
		"routes recommend", "routes save", "routes rename", "routes delete",
		"agent new", "agent say":
		return true
	default:
		return false
	}
}

func normalizeCommandPath(commandPath string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(commandPath))), " ")
}

func parseTimestamp(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, clierr.Wrap(clierr.CodeUsage, "timestamps must be RFC3339", err)
	}
	return t.UTC(), nil
}
