// Package main provides the autopilot CLI: an autonomous web task agent
// that turns natural-language goals into verified browser actions.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/entrhq/autopilot/pkg/audit"
	"github.com/entrhq/autopilot/pkg/browser"
	"github.com/entrhq/autopilot/pkg/config"
	"github.com/entrhq/autopilot/pkg/executor"
	"github.com/entrhq/autopilot/pkg/logging"
	"github.com/entrhq/autopilot/pkg/planner"
	"github.com/entrhq/autopilot/pkg/scheduler"
	"github.com/entrhq/autopilot/pkg/types"
)

const version = "0.1.0"

type rootFlags struct {
	configPath string
	headless   bool
	timeout    int
	maxRetries int
	sessions   int
	model      string
	baseURL    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "autopilot",
		Short:         "Autonomous web task agent",
		Long:          "Autopilot executes natural-language web tasks through planned, verified browser actions.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default ~/.autopilot/config.yaml)")
	pf.BoolVar(&flags.headless, "headless", true, "run browsers without a window")
	pf.IntVar(&flags.timeout, "timeout", config.DefaultTimeoutSeconds, "per-action timeout in seconds")
	pf.IntVar(&flags.maxRetries, "max-retries", config.DefaultMaxRetries, "retry attempts per step")
	pf.IntVar(&flags.sessions, "sessions", config.DefaultMaxConcurrentSessions, "maximum concurrent browser sessions")
	pf.StringVar(&flags.model, "model", "", "planning model")
	pf.StringVar(&flags.baseURL, "base-url", "", "OpenAI-compatible API base URL")

	root.AddCommand(newRunCmd(flags), newExtractCmd(flags), newChainCmd(flags), newInteractiveCmd(flags))
	return root
}

// loadConfig merges the config file with explicitly set flags.
func loadConfig(cmd *cobra.Command, flags *rootFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}

	set := cmd.Flags()
	if set.Changed("headless") {
		cfg.Headless = flags.headless
	}
	if set.Changed("timeout") {
		cfg.TimeoutSeconds = flags.timeout
	}
	if set.Changed("max-retries") {
		cfg.MaxRetries = flags.maxRetries
	}
	if set.Changed("sessions") {
		cfg.MaxConcurrentSessions = flags.sessions
	}
	if flags.model != "" {
		cfg.Model = flags.model
	}
	if flags.baseURL != "" {
		cfg.BaseURL = flags.baseURL
	}
	return cfg, cfg.Validate()
}

// runtime bundles the wired components behind the CLI commands.
type runtime struct {
	cfg       *config.Config
	logger    *logging.Logger
	recorder  *audit.Recorder
	auditFile *os.File
	planner   planner.Planner
	manager   *browser.SessionManager
	sched     *scheduler.Scheduler
}

func newRuntime(cmd *cobra.Command, flags *rootFlags) (*runtime, error) {
	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return nil, err
	}

	logger, _ := logging.NewLogger("cli")

	rt := &runtime{cfg: cfg, logger: logger}

	rt.recorder, rt.auditFile = openRecorder(logger)

	rt.planner, err = planner.NewOpenAIPlanner("", cfg.BaseURL, planner.WithModel(cfg.Model))
	if err != nil {
		rt.close()
		return nil, err
	}

	rt.manager = browser.NewSessionManager(cfg.MaxConcurrentSessions, browser.Options{
		Headless: cfg.Headless,
		Timeout:  time.Duration(cfg.TimeoutSeconds) * time.Second,
	})
	if err := rt.manager.Initialize(); err != nil {
		rt.close()
		return nil, err
	}

	rt.sched = scheduler.New(rt.manager, rt.taskFunc,
		scheduler.WithRecorder(rt.recorder), scheduler.WithLogger(logger))
	return rt, nil
}

// openRecorder opens the append-only audit log. Audit is best-effort:
// when the file cannot be opened events are simply dropped.
func openRecorder(logger *logging.Logger) (*audit.Recorder, *os.File) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, nil
	}
	path := filepath.Join(home, ".autopilot", "audit.log")
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		logger.Warnf("audit log unavailable: %v", err)
		return nil, nil
	}
	return audit.NewRecorder(f), f
}

func (rt *runtime) close() {
	if rt.manager != nil {
		if err := rt.manager.Shutdown(); err != nil {
			rt.logger.Warnf("browser shutdown: %v", err)
		}
	}
	rt.recorder.Close()
	if rt.auditFile != nil {
		rt.auditFile.Close()
	}
	if rt.logger != nil {
		rt.logger.Close()
	}
}

// taskFunc plans a goal and drives an executor on the given session.
// It is the scheduler's TaskFunc.
func (rt *runtime) taskFunc(ctx context.Context, session *browser.Session, goal, startingContext string) (*types.TaskResult, error) {
	plan, err := rt.planner.Decompose(ctx, goal, startingContext)
	if err != nil {
		return nil, err
	}
	rt.recorder.Emit(audit.Event{Type: audit.EventPlanCreated, RunID: plan.ID, Detail: goal})
	rt.logger.Infof("planned %d steps for goal %q", plan.Len(), goal)

	act := browser.NewActuator(session, time.Duration(rt.cfg.TimeoutSeconds)*time.Second)

	exec := executor.New(act, executor.NewPredicateVerifier(act.IsVisible), rt.cfg.MaxRetries,
		executor.WithReplanner(rt.planner),
		executor.WithEscalationGate(executor.NewConfidenceGate(rt.cfg.EscalationConfidenceThreshold, nil)),
		executor.WithEscalationHandler(promptEscalation, 0),
		executor.WithRecorder(rt.recorder),
		executor.WithLogger(rt.logger),
	)
	return exec.Run(ctx, plan)
}

// promptEscalation surfaces an escalated step on the terminal and reads
// the human's resume/abort decision from stdin.
func promptEscalation(ctx context.Context, req *executor.EscalationRequest) executor.ResumeDecision {
	fmt.Fprintf(os.Stderr, "\nStep needs attention: %s %s (failed after %d attempts)\n",
		req.Step.Intent, req.Step.Target, req.Attempts)
	if req.Failure != nil {
		fmt.Fprintf(os.Stderr, "  reason: %v\n", req.Failure)
	}
	if n := len(req.Evidence); n > 0 {
		last := req.Evidence[n-1]
		fmt.Fprintf(os.Stderr, "  page: %s (%s)\n", last.URL, last.Title)
	}
	fmt.Fprint(os.Stderr, "Retry step or abort task? [r/a]: ")

	answerCh := make(chan string, 1)
	go func() {
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		answerCh <- line
	}()

	select {
	case line := <-answerCh:
		if strings.HasPrefix(strings.TrimSpace(strings.ToLower(line)), "r") {
			return executor.ResumeRetry
		}
		return executor.ResumeAbort
	case <-ctx.Done():
		return executor.ResumeAbort
	}
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
// Cancellation takes effect at the next step boundary.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down at the next step boundary...")
		cancel()
	}()
	return ctx, cancel
}

// printOutcomes writes the per-step execution log to stdout.
func printOutcomes(result *types.TaskResult) {
	fprintOutcomes(os.Stdout, result)
}

func fprintOutcomes(w io.Writer, result *types.TaskResult) {
	for i, outcome := range result.Outcomes {
		status := "ok"
		switch outcome.Status {
		case types.StatusFailed:
			status = "FAILED"
		case types.StatusEscalated:
			status = "ESCALATED"
		}
		line := fmt.Sprintf("  %2d. [%s] step %s (attempts: %d)", i+1, status, outcome.StepID, outcome.Attempts)
		if outcome.Error != "" {
			line += ": " + outcome.Error
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "Duration: %s\n", result.Duration.Round(time.Millisecond))
}
