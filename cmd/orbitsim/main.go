package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/san-kum/orbitsim/internal/config"
	"github.com/san-kum/orbitsim/internal/dynamo"
	"github.com/san-kum/orbitsim/internal/experiment"
	"github.com/san-kum/orbitsim/internal/logging"
	"github.com/san-kum/orbitsim/internal/metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	settingsFile   string
	integrator     string
	dt             float64
	finalTime      float64
	baselineDt     float64
	sweepDts       []float64
	normName       string
	strict         bool
	minSeparation  float64
	plotRadius     bool
	pngPath        string
	stepsPerFrame  int
	body           string
	reference      string
	central        string
	showDivergence bool
)

// app carries what every command needs once settings are resolved.
type app struct {
	v        *viper.Viper
	settings config.Settings
	logger   log.Logger
	inst     *metrics.Instrumentation
	registry *experiment.Registry
	server   *http.Server
}

func main() {
	a := &app{v: config.NewViper(), registry: experiment.NewRegistry()}

	rootCmd := &cobra.Command{
		Use:               "orbitsim",
		Short:             "n-body orbit propagation and integrator convergence lab",
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) { a.shutdown() },
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&settingsFile, "settings", "", "settings file (yaml, toml or json)")
	pf.String("data", ".orbitsim", "data directory for stored studies")
	pf.String("log-level", "info", "log level: debug, info, warn, error, none")
	pf.String("log-format", "logfmt", "log format: logfmt or json")
	pf.String("metrics-addr", "", "serve prometheus metrics on this address, e.g. :9090")
	pf.Int64("max-bytes", 2<<30, "largest trajectory kept in memory")
	pf.Int("workers", 0, "concurrent propagations in a sweep (0 = GOMAXPROCS)")

	runCmd := &cobra.Command{
		Use:   "run [scenario]",
		Short: "propagate a scenario and report conservation diagnostics",
		Args:  cobra.MaximumNArgs(1),
		RunE:  a.runScenario,
	}
	scenarioFlags(runCmd)
	runCmd.Flags().BoolVar(&plotRadius, "plot", false, "draw the orbit and its radius in the terminal")
	runCmd.Flags().StringVar(&pngPath, "png", "", "write an orbit plot (png, svg or pdf)")
	runCmd.Flags().StringVar(&reference, "reference", "", "body the orbit plot is centred on")

	errorCmd := &cobra.Command{
		Use:   "error [scenario]",
		Short: "relative final-state error of dt against a finer baseline",
		Args:  cobra.MaximumNArgs(1),
		RunE:  a.estimateError,
	}
	scenarioFlags(errorCmd)
	estimatorFlags(errorCmd)
	errorCmd.Flags().BoolVar(&showDivergence, "divergence", false, "chart the divergence from the baseline run over time")

	sweepCmd := &cobra.Command{
		Use:   "sweep [scenario]",
		Short: "convergence study over several step sizes",
		Args:  cobra.MaximumNArgs(1),
		RunE:  a.sweep,
	}
	scenarioFlags(sweepCmd)
	estimatorFlags(sweepCmd)
	sweepCmd.Flags().Float64SliceVar(&sweepDts, "dts", nil, "step sizes to test")
	sweepCmd.Flags().StringVar(&pngPath, "png", "", "write a log-log error plot (png, svg or pdf)")

	liveCmd := &cobra.Command{
		Use:   "live [scenario]",
		Short: "integrate a scenario with a live terminal view",
		Args:  cobra.MaximumNArgs(1),
		RunE:  a.live,
	}
	scenarioFlags(liveCmd)
	liveCmd.Flags().IntVar(&stepsPerFrame, "steps-per-frame", 10, "integration steps drawn per frame")
	liveCmd.Flags().StringVar(&reference, "reference", "", "body the view is centred on")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [scenario]",
		Short: "orbital period and apsides of one body about another",
		Args:  cobra.MaximumNArgs(1),
		RunE:  a.analyze,
	}
	scenarioFlags(analyzeCmd)
	analyzeCmd.Flags().StringVar(&body, "body", "satellite", "orbiting body")
	analyzeCmd.Flags().StringVar(&central, "reference", "mars", "central body")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list scenario presets and integrators",
		Args:  cobra.NoArgs,
		RunE:  a.presets,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored convergence studies",
		Args:  cobra.NoArgs,
		RunE:  a.listStudies,
	}

	showCmd := &cobra.Command{
		Use:   "show [study_id]",
		Short: "print a stored convergence study",
		Args:  cobra.ExactArgs(1),
		RunE:  a.showStudy,
	}
	showCmd.Flags().StringVar(&pngPath, "png", "", "write a log-log error plot (png, svg or pdf)")

	batchCmd := &cobra.Command{
		Use:   "batch [plan.yaml]",
		Short: "run and store every study in a yaml plan",
		Args:  cobra.ExactArgs(1),
		RunE:  a.batch,
	}
	batchCmd.Flags().BoolVar(&strict, "strict", false, "fail when a baseline step is not finer")

	rootCmd.AddCommand(runCmd, errorCmd, sweepCmd, liveCmd, analyzeCmd, presetsCmd, listCmd, showCmd, batchCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func scenarioFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&integrator, "integrator", "", "override the scenario integrator")
	cmd.Flags().Float64Var(&dt, "dt", 0, "override the scenario step [s]")
	cmd.Flags().Float64Var(&finalTime, "time", 0, "override the scenario final time [s]")
	cmd.Flags().Float64Var(&minSeparation, "min-separation", 0, "fail when two bodies come closer than this, in scenario units")
}

func estimatorFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&baselineDt, "baseline", 0, "override the baseline step [s]")
	cmd.Flags().StringVar(&normName, "norm", "default", "compared slice: positions, full or default")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail when the baseline step is not finer")
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	if err := config.BindFlags(a.v, cmd.Flags()); err != nil {
		return err
	}
	if err := config.ReadSettingsFile(a.v, settingsFile); err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	a.settings = config.LoadSettings(a.v)

	logger, err := logging.New(os.Stderr, a.settings.LogFormat, a.settings.LogLevel)
	if err != nil {
		return err
	}
	a.logger = logger
	a.inst = metrics.NewInstrumentation()

	if a.settings.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", a.inst.Handler())
		a.server = &http.Server{Addr: a.settings.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				level.Error(a.logger).Log("msg", "metrics server", "err", err)
			}
		}()
		level.Info(a.logger).Log("msg", "serving metrics", "addr", a.settings.MetricsAddr)
	}
	return nil
}

func (a *app) shutdown() {
	if a.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	a.server.Shutdown(ctx)
}

// scenario resolves the positional argument and applies the flags that
// were actually given.
func (a *app) scenario(cmd *cobra.Command, args []string) (*config.Config, error) {
	name := config.DefaultConfig().Name
	if len(args) > 0 {
		name = args[0]
	}
	cfg, err := a.registry.GetScenario(name)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("time") {
		cfg.FinalTime = finalTime
	}
	if flags.Changed("baseline") {
		cfg.BaselineDt = baselineDt
	}
	if flags.Changed("dts") {
		cfg.SweepDts = sweepDts
	}
	return cfg, cfg.Validate()
}

func (a *app) experiment(cmd *cobra.Command, cfg *config.Config) (*experiment.Experiment, error) {
	norm := dynamo.NormDefault
	if cmd.Flags().Lookup("norm") != nil {
		var err error
		if norm, err = dynamo.ParseErrorNorm(normName); err != nil {
			return nil, err
		}
	}
	return experiment.New(a.registry, cfg, experiment.Options{
		Logger:          a.logger,
		Instrumentation: a.inst,
		MaxBytes:        a.settings.MaxBytes,
		Workers:         a.settings.Workers,
		Strict:          strict,
		Norm:            norm,
		MinSeparation:   minSeparation,
	})
}
