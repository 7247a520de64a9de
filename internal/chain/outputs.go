package chain

import (
	"fmt"
	"time"

	"github.com/nerrad567/secretbox-core/internal/pin"
)

// outputs drives the pin model, GPIO and sound sink for a running step.
// It is only used while e.mu is held.
type outputs struct {
	e *Engine
}

func (o outputs) SetPin(id int, level pin.Level) error {
	p, err := o.e.pins.Get(id)
	if err != nil {
		return err
	}
	if err := p.SetLevel(level); err != nil {
		return err
	}
	return o.e.write(p, level)
}

func (o outputs) TogglePin(id int) error {
	p, err := o.e.pins.Get(id)
	if err != nil {
		return err
	}
	return o.SetPin(id, p.Level().Invert())
}

func (o outputs) PlaySound(id int, d time.Duration) error {
	if o.e.sound == nil {
		return fmt.Errorf("%w: sound %d", ErrNoSoundSink, id)
	}
	return o.e.sound.Play(id, d)
}

// write pushes a level to GPIO and mirrors it onto the pin's indicator.
func (e *Engine) write(p *pin.Pin, level pin.Level) error {
	mirror := p.HasIndicator()
	if mirror {
		// Undeclared indicators are driven over GPIO only.
		if ind, err := e.pins.Get(p.Indicator()); err == nil {
			if !ind.IsOutput() {
				e.logger.Warn("indicator pin is not an output", "pin", p.ID(), "indicator", p.Indicator())
				mirror = false
			} else if err := ind.SetLevel(level); err != nil {
				return fmt.Errorf("indicator %d: %w", p.Indicator(), err)
			}
		}
	}
	if e.gpio == nil {
		return nil
	}
	if err := e.gpio.Write(p.ID(), level); err != nil {
		return fmt.Errorf("gpio write pin %d: %w", p.ID(), err)
	}
	if mirror {
		if err := e.gpio.Write(p.Indicator(), level); err != nil {
			return fmt.Errorf("gpio write indicator %d: %w", p.Indicator(), err)
		}
	}
	return nil
}
