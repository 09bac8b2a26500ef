package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/orbitsim/internal/analysis"
	"github.com/san-kum/orbitsim/internal/automation"
	"github.com/san-kum/orbitsim/internal/config"
	"github.com/san-kum/orbitsim/internal/convergence"
	"github.com/san-kum/orbitsim/internal/dynamo"
	"github.com/san-kum/orbitsim/internal/experiment"
	"github.com/san-kum/orbitsim/internal/storage"
	"github.com/san-kum/orbitsim/internal/viz"
	"github.com/spf13/cobra"
)

func (a *app) runScenario(cmd *cobra.Command, args []string) error {
	cfg, err := a.scenario(cmd, args)
	if err != nil {
		return err
	}
	exp, err := a.experiment(cmd, cfg)
	if err != nil {
		return err
	}

	fmt.Printf("running %s with %s (dt=%gs, T=%gs)...\n", cfg.Name, exp.Stepper().Name(), cfg.Dt, cfg.FinalTime)
	report, err := exp.Run(cmd.Context())
	if err != nil {
		return err
	}
	traj := report.Trajectory

	fmt.Printf("completed in %v\n", report.Elapsed)
	fmt.Printf("states: %d, reached t=%gs\n\n", traj.Len(), float64(traj.Len()-1)*traj.Dt)

	rows := make([][]string, 0, len(cfg.Bodies))
	final := traj.Final()
	for i, b := range cfg.Bodies {
		p, v := final.Position(i), final.Velocity(i)
		rows = append(rows, []string{b.Name, fmtVec(p.X, p.Y, p.Z), fmtVec(v.X, v.Y, v.Z)})
	}
	fmt.Println(viz.Table([]string{"body", "position [" + cfg.Units + "]", "velocity [" + cfg.Units + "/s]"}, rows))

	fmt.Println("metrics:")
	names := make([]string, 0, len(report.Metrics))
	for name := range report.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Println("  " + viz.Metric(name, report.Metrics[name]))
	}

	ref := refIndex(cfg, reference)
	if plotRadius && len(cfg.Bodies) > 1 {
		i := (ref + 1) % len(cfg.Bodies)
		caption := fmt.Sprintf("|%s - %s| [%s]", cfg.Bodies[i].Name, cfg.Bodies[ref].Name, cfg.Units)
		fmt.Println()
		fmt.Println(viz.OrbitView(analysis.RelativePath(traj, i, ref), 40, 16))
		fmt.Println(viz.LineChart(analysis.Separation(traj, i, ref), caption, 70, 12))
	}

	if pngPath != "" {
		tracks := make([]viz.Track, 0, len(cfg.Bodies)-1)
		for i, b := range cfg.Bodies {
			if i == ref {
				continue
			}
			tracks = append(tracks, viz.Track{Name: b.Name, Points: viz.Vectors(analysis.RelativePath(traj, i, ref))})
		}
		title := fmt.Sprintf("%s about %s (%s)", cfg.Name, cfg.Bodies[ref].Name, exp.Stepper().Name())
		if err := viz.SaveOrbits(pngPath, title, cfg.Units, tracks); err != nil {
			return err
		}
		fmt.Printf("\norbit plot written to %s\n", pngPath)
	}
	return nil
}

func (a *app) estimateError(cmd *cobra.Command, args []string) error {
	cfg, err := a.scenario(cmd, args)
	if err != nil {
		return err
	}
	exp, err := a.experiment(cmd, cfg)
	if err != nil {
		return err
	}

	res, err := exp.Estimate(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Println(viz.Title.Render(fmt.Sprintf("%s / %s", cfg.Name, exp.Stepper().Name())))
	fmt.Println(viz.Metric("dt [s]", res.Dt))
	fmt.Println(viz.Metric("baseline dt [s]", res.BaselineDt))
	fmt.Println(viz.Metric("norm", res.Norm.String()))
	fmt.Println(viz.Metric("horizon [s]", res.Horizon))
	fmt.Println(viz.Metric("relative error", res.Error))
	printWarnings(res.Warnings)

	if !showDivergence {
		return nil
	}
	ref, err := exp.Propagate(cmd.Context(), res.BaselineDt)
	if err != nil {
		return err
	}
	coarse, err := exp.Propagate(cmd.Context(), res.Dt)
	if err != nil {
		return err
	}
	div, err := analysis.Divergence(ref, coarse, res.Norm)
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Println(viz.LineChart(div, "relative divergence from the baseline run", 70, 10))
	return nil
}

func (a *app) sweep(cmd *cobra.Command, args []string) error {
	cfg, err := a.scenario(cmd, args)
	if err != nil {
		return err
	}
	exp, err := a.experiment(cmd, cfg)
	if err != nil {
		return err
	}

	fmt.Printf("sweeping %s with %s over %d step sizes (baseline dt=%gs)...\n", cfg.Name, exp.Stepper().Name(), len(cfg.SweepDts), cfg.BaselineDt)
	study, err := exp.Sweep(cmd.Context())
	if err != nil {
		return err
	}

	st := storage.New(a.settings.DataDir)
	if err := st.Init(); err != nil {
		return err
	}
	id, err := st.Save(study.Meta, study.Points)
	if err != nil {
		return err
	}
	study.Meta.ID = id

	printStudy(&study.Meta, study.Points)
	fmt.Printf("\nstudy id: %s\n", id)

	if pngPath != "" {
		if err := viz.SaveErrors(pngPath, fmt.Sprintf("%s / %s", cfg.Name, exp.Stepper().Name()), study.Points); err != nil {
			return err
		}
		fmt.Printf("error plot written to %s\n", pngPath)
	}
	return nil
}

func (a *app) live(cmd *cobra.Command, args []string) error {
	cfg, err := a.scenario(cmd, args)
	if err != nil {
		return err
	}
	exp, err := a.experiment(cmd, cfg)
	if err != nil {
		return err
	}

	names := make([]string, len(cfg.Bodies))
	for i, b := range cfg.Bodies {
		names[i] = b.Name
	}
	m, err := viz.NewModel(exp.System(), exp.Stepper(), exp.InitialState(), viz.LiveOptions{
		Title:         cfg.Name,
		Names:         names,
		Units:         cfg.Units,
		Dt:            cfg.Dt,
		FinalTime:     cfg.FinalTime,
		StepsPerFrame: stepsPerFrame,
		Reference:     refIndex(cfg, reference),
	})
	if err != nil {
		return err
	}

	final, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(viz.Model); ok && fm.Err() != nil {
		return fm.Err()
	}
	return nil
}

func (a *app) analyze(cmd *cobra.Command, args []string) error {
	cfg, err := a.scenario(cmd, args)
	if err != nil {
		return err
	}
	i, j := cfg.BodyIndex(body), cfg.BodyIndex(central)
	if i < 0 || j < 0 || i == j {
		return fmt.Errorf("%w: need two distinct bodies, got %q and %q", dynamo.ErrInvalidParameter, body, central)
	}
	exp, err := a.experiment(cmd, cfg)
	if err != nil {
		return err
	}

	report, err := exp.Run(cmd.Context())
	if err != nil {
		return err
	}
	traj := report.Trajectory
	sep := analysis.Separation(traj, i, j)
	peri, apo := analysis.Apsides(traj, i, j)

	fmt.Println(viz.Title.Render(fmt.Sprintf("%s about %s", body, central)))
	fmt.Println(viz.Metric("periapsis ["+cfg.Units+"]", peri))
	fmt.Println(viz.Metric("apoapsis ["+cfg.Units+"]", apo))
	fmt.Println(viz.Metric("eccentricity", (apo-peri)/(apo+peri)))

	period, err := analysis.DominantPeriod(traj.Times, sep)
	if err != nil {
		fmt.Println(viz.Warning.Render("period: " + err.Error()))
	} else {
		fmt.Println(viz.Metric("period [s]", period))
		fmt.Println(viz.Metric("period [h]", period/3600))
		fmt.Println(viz.Metric("orbits covered", traj.Times[len(traj.Times)-1]/period))
	}
	fmt.Println()
	fmt.Println(viz.LineChart(sep, "separation ["+cfg.Units+"]", 70, 10))
	return nil
}

func (a *app) batch(cmd *cobra.Command, args []string) error {
	plan, err := automation.LoadPlan(args[0])
	if err != nil {
		return err
	}
	st := storage.New(a.settings.DataDir)
	if err := st.Init(); err != nil {
		return err
	}

	r := &automation.Runner{
		Registry: a.registry,
		Options: experiment.Options{
			Logger:          a.logger,
			Instrumentation: a.inst,
			MaxBytes:        a.settings.MaxBytes,
			Workers:         a.settings.Workers,
			Strict:          strict,
		},
		Store:  st,
		Logger: a.logger,
	}

	fmt.Printf("running plan %s (%d studies)...\n", plan.Name, len(plan.Studies))
	studies, err := r.Run(cmd.Context(), plan)
	rows := make([][]string, 0, len(studies))
	for _, s := range studies {
		rows = append(rows, []string{s.Meta.ID, s.Meta.Scenario, s.Meta.Integrator, s.Meta.Norm, fmt.Sprintf("%.2f", s.Meta.Order)})
	}
	if len(rows) > 0 {
		fmt.Println(viz.Table([]string{"id", "scenario", "integrator", "norm", "order"}, rows))
	}
	return err
}

func (a *app) presets(cmd *cobra.Command, args []string) error {
	rows := [][]string{}
	for _, name := range a.registry.ListScenarios() {
		cfg, err := a.registry.GetScenario(name)
		if err != nil {
			return err
		}
		bodies := make([]string, len(cfg.Bodies))
		for i, b := range cfg.Bodies {
			bodies[i] = b.Name
		}
		rows = append(rows, []string{name, strings.Join(bodies, ","), cfg.Integrator, fmtG(cfg.Dt), fmtG(cfg.FinalTime)})
	}
	fmt.Println(viz.Table([]string{"preset", "bodies", "integrator", "dt [s]", "T [s]"}, rows))
	fmt.Println("integrators: " + strings.Join(a.registry.ListIntegrators(), ", "))
	return nil
}

func (a *app) listStudies(cmd *cobra.Command, args []string) error {
	studies, err := storage.New(a.settings.DataDir).List()
	if err != nil {
		return err
	}
	if len(studies) == 0 {
		fmt.Println("no studies found")
		return nil
	}

	rows := make([][]string, 0, len(studies))
	for _, s := range studies {
		rows = append(rows, []string{s.ID, s.Scenario, s.Integrator, s.Norm, fmt.Sprintf("%.2f", s.Order), s.Timestamp.Format("2006-01-02 15:04")})
	}
	fmt.Println(viz.Table([]string{"id", "scenario", "integrator", "norm", "order", "time"}, rows))
	return nil
}

func (a *app) showStudy(cmd *cobra.Command, args []string) error {
	st := storage.New(a.settings.DataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	points, err := st.LoadPoints(args[0])
	if err != nil {
		return err
	}
	printStudy(meta, points)

	if pngPath != "" {
		if err := viz.SaveErrors(pngPath, fmt.Sprintf("%s / %s", meta.Scenario, meta.Integrator), points); err != nil {
			return err
		}
		fmt.Printf("\nerror plot written to %s\n", pngPath)
	}
	return nil
}

func printStudy(meta *storage.StudyMetadata, points []convergence.Point) {
	fmt.Println(viz.Title.Render(fmt.Sprintf("%s / %s, %s norm", meta.Scenario, meta.Integrator, meta.Norm)))
	fmt.Println(viz.Subtle.Render(fmt.Sprintf("T=%gs, baseline dt=%gs", meta.FinalTime, meta.BaselineDt)))
	fmt.Println()

	ratios := convergence.Ratios(points)
	rows := make([][]string, len(points))
	for i, p := range points {
		ratio := ""
		if i > 0 {
			ratio = fmt.Sprintf("%.2f", ratios[i-1])
		}
		rows[i] = []string{fmtG(p.Dt), fmt.Sprintf("%.3e", p.Error), fmtG(p.Horizon), ratio}
	}
	fmt.Println(viz.Table([]string{"dt [s]", "relative error", "horizon [s]", "ratio"}, rows))

	if meta.Order != 0 {
		fmt.Println(viz.Metric("observed order", fmt.Sprintf("%.3f", meta.Order)))
	}
	if chart := viz.ErrorChart(points, 8); chart != "" {
		fmt.Println()
		fmt.Println(chart)
	}
	for _, w := range meta.Warnings {
		fmt.Println(viz.Warning.Render("warning: " + w))
	}
}

func printWarnings(warnings []error) {
	for _, w := range warnings {
		fmt.Println(viz.Warning.Render("warning: " + w.Error()))
	}
}

// refIndex resolves a body name, falling back to mars and then body 0.
func refIndex(cfg *config.Config, name string) int {
	if name != "" {
		if i := cfg.BodyIndex(name); i >= 0 {
			return i
		}
	}
	if i := cfg.BodyIndex("mars"); i >= 0 {
		return i
	}
	return 0
}

func fmtG(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

func fmtVec(x, y, z float64) string { return fmt.Sprintf("(%.6e, %.6e, %.6e)", x, y, z) }
