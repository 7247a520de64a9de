package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/secretbox-core/internal/chain"
	"github.com/nerrad567/secretbox-core/internal/hal/gpio"
	"github.com/nerrad567/secretbox-core/internal/show"
	"github.com/nerrad567/secretbox-core/internal/timer"
)

// errFaults is returned by check when the simulation recorded faults.
var errFaults = errors.New("simulation recorded faults")

type checkOptions struct {
	chains    []string
	maxFires  int
	stepDelay time.Duration
}

func newCheckCmd() *cobra.Command {
	opts := checkOptions{}
	cmd := &cobra.Command{
		Use:   "check SHOW",
		Short: "Validate a show file and simulate its chains on a virtual clock",
		Long: `check loads and validates a show, then arms the selected chains on an
in-memory board and runs them on a virtual clock, printing every event.
Without --chain the autostart chains are run, or every chain if none
autostarts. Chains that loop forever stop after --max-fires expiries.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.OutOrStdout(), args[0], opts)
		},
	}
	cmd.Flags().StringSliceVar(&opts.chains, "chain", nil, "chain to run (repeatable)")
	cmd.Flags().IntVar(&opts.maxFires, "max-fires", 1000, "stop after this many timer expiries")
	cmd.Flags().DurationVar(&opts.stepDelay, "step-delay", 0, "lead-in for steps without delay_ms")
	return cmd
}

func runCheck(out io.Writer, path string, opts checkOptions) error {
	sh, err := show.Load(path)
	if err != nil {
		return err
	}
	board, err := sh.Build(opts.stepDelay)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "show %q: %d pins, %d chains\n", sh.Name, board.Pins.Len(), len(board.Chains))

	driver := timer.NewManualDriver()
	trace := &traceObserver{out: out, clock: driver.Now}
	outputs, inputs := boardPins(board)

	engine, err := chain.NewEngine(chain.Config{
		PoolSize: len(board.Chains),
		Driver:   driver,
		Pins:     board.Pins,
		GPIO:     gpio.NewMemory(outputs, inputs),
		Sound:    trace,
	})
	if err != nil {
		return err
	}
	engine.AddObserver(trace)
	for _, c := range board.Chains {
		if err := engine.Register(c); err != nil {
			return err
		}
	}

	for _, name := range selectChains(board, opts.chains) {
		if err := engine.Arm(name); err != nil {
			return fmt.Errorf("arming %q: %w", name, err)
		}
	}

	fires := 0
	for fires < opts.maxFires {
		if _, ok := driver.FireNext(); !ok {
			break
		}
		fires++
	}

	stats := engine.Stats()
	fmt.Fprintf(out, "%d expiries over %s, %d chains still armed, %d faults\n",
		fires, driver.Now(), stats.Armed, trace.faults)
	if trace.faults > 0 {
		return fmt.Errorf("%w: %d", errFaults, trace.faults)
	}
	return nil
}

// selectChains returns the requested chains, else the autostart chains,
// else every chain.
func selectChains(board *show.Board, requested []string) []string {
	if len(requested) > 0 {
		return requested
	}
	if len(board.Autostart) > 0 {
		return board.Autostart
	}
	names := make([]string, 0, len(board.Chains))
	for _, c := range board.Chains {
		names = append(names, c.Name())
	}
	return names
}

// traceObserver prints events and sound requests against the virtual clock.
type traceObserver struct {
	out    io.Writer
	clock  func() time.Duration
	faults int
}

func (t *traceObserver) ChainEvent(ev chain.Event) {
	line := fmt.Sprintf("%10s  %-16s %-9s", t.clock(), ev.Chain, ev.Type)
	switch ev.Type {
	case chain.EventStep:
		line += fmt.Sprintf(" #%d %s -> %s", ev.Index, ev.Action, ev.Outcome)
	case chain.EventFault:
		t.faults++
		line += fmt.Sprintf(" #%d %s: %s", ev.Index, ev.Action, ev.Error)
	}
	fmt.Fprintln(t.out, line)
}

func (t *traceObserver) Play(id int, d time.Duration) error {
	fmt.Fprintf(t.out, "%10s  sound %d for %s\n", t.clock(), id, d)
	return nil
}
