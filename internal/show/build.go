package show

import (
	"fmt"
	"time"

	"github.com/nerrad567/secretbox-core/internal/action"
	"github.com/nerrad567/secretbox-core/internal/chain"
	"github.com/nerrad567/secretbox-core/internal/pin"
)

// Board is a show turned into engine inputs.
type Board struct {
	Pins *pin.Bank
	// Chains are unregistered and Idle, in file order.
	Chains []*chain.Chain
	// Autostart lists the chains to arm once registered.
	Autostart []string
}

// Build creates the pin bank and chains described by the show. Steps
// without delay_ms get defaultDelay as their lead-in.
func (s *Show) Build(defaultDelay time.Duration) (*Board, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	bank, err := pin.NewBank()
	if err != nil {
		return nil, err
	}
	for _, def := range s.Pins {
		p, err := s.buildPin(def)
		if err != nil {
			return nil, fmt.Errorf("%w: pin %d: %v", ErrInvalidShow, def.ID, err)
		}
		if err := bank.Add(p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidShow, err)
		}
	}

	board := &Board{Pins: bank}
	for _, def := range s.Chains {
		actions := make([]action.Action, 0, len(def.Steps))
		for j, st := range def.Steps {
			a, err := st.Action(defaultDelay)
			if err != nil {
				return nil, fmt.Errorf("%w: chain %q step %d: %v", ErrInvalidShow, def.Name, j, err)
			}
			actions = append(actions, a)
		}
		board.Chains = append(board.Chains, chain.New(def.Name, actions...))
		if def.Autostart {
			board.Autostart = append(board.Autostart, def.Name)
		}
	}
	return board, nil
}

// Action converts the step to an engine action.
func (st StepDef) Action(defaultDelay time.Duration) (action.Action, error) {
	kind, err := action.ParseKind(st.Do)
	if err != nil {
		return action.Action{}, err
	}
	a, err := action.New(kind, st.Args...)
	if err != nil {
		return action.Action{}, err
	}
	delay := defaultDelay
	if st.DelayMS != nil {
		delay = time.Duration(*st.DelayMS) * time.Millisecond
	}
	return a.After(delay), nil
}

func (s *Show) buildPin(def PinDef) (*pin.Pin, error) {
	dir, err := pin.ParseDirection(def.Direction)
	if err != nil {
		return nil, err
	}
	mode, err := pin.ParseMode(def.Mode)
	if err != nil {
		return nil, err
	}
	indicator := pin.NoIndicator
	if def.Indicator != nil {
		indicator = *def.Indicator
	}
	p, err := pin.New(def.ID, indicator, dir, mode)
	if err != nil {
		return nil, err
	}

	if def.Pattern == "" {
		return p, nil
	}
	pat := s.Patterns[def.Pattern]
	steps := make([]pin.Step, len(pat.Steps))
	for i, st := range pat.Steps {
		steps[i] = pin.Step{State: st.State, Dwell: time.Duration(st.DwellMS) * time.Millisecond}
	}
	var head *pin.StateNode
	if pat.Cycle {
		head, err = pin.NewCycle(steps...)
	} else {
		head, err = pin.NewSequence(steps...)
	}
	if err != nil {
		return nil, err
	}
	p.Attach(head)
	return p, nil
}
