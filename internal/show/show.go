package show

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/secretbox-core/internal/action"
	"github.com/nerrad567/secretbox-core/internal/chain"
	"github.com/nerrad567/secretbox-core/internal/pin"
)

// Show is the parsed content of a show file.
type Show struct {
	Name     string                `yaml:"name" json:"name"`
	Pins     []PinDef              `yaml:"pins" json:"pins"`
	Patterns map[string]PatternDef `yaml:"patterns" json:"patterns,omitempty"`
	Chains   []ChainDef            `yaml:"chains" json:"chains"`
}

// PinDef declares one board pin.
type PinDef struct {
	ID        int    `yaml:"id" json:"id"`
	Indicator *int   `yaml:"indicator,omitempty" json:"indicator,omitempty"`
	Direction string `yaml:"direction" json:"direction"`
	Mode      string `yaml:"mode" json:"mode,omitempty"`
	// Pattern names an entry in Show.Patterns attached as the pin's state list.
	Pattern string `yaml:"pattern,omitempty" json:"pattern,omitempty"`
}

// PatternDef is a pin-local state list.
type PatternDef struct {
	Cycle bool          `yaml:"cycle" json:"cycle"`
	Steps []PatternStep `yaml:"steps" json:"steps"`
}

// PatternStep is one node of a pattern.
type PatternStep struct {
	State   int `yaml:"state" json:"state"`
	DwellMS int `yaml:"dwell_ms" json:"dwell_ms"`
}

// ChainDef declares one chain.
type ChainDef struct {
	Name      string    `yaml:"name" json:"name"`
	Autostart bool      `yaml:"autostart" json:"autostart,omitempty"`
	Steps     []StepDef `yaml:"steps" json:"steps"`
}

// StepDef is one action of a chain.
type StepDef struct {
	Do   string `yaml:"do" json:"do"`
	Args []int  `yaml:"args,omitempty" json:"args,omitempty"`
	// DelayMS is the lead-in delay. Nil means the engine default.
	DelayMS *int `yaml:"delay_ms,omitempty" json:"delay_ms,omitempty"`
}

// Load reads and validates a show file.
func Load(path string) (*Show, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading show file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates show YAML. Unknown fields are rejected.
func Parse(data []byte) (*Show, error) {
	var s Show
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: parsing: %v", ErrInvalidShow, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the show for consistency and returns every problem found.
func (s *Show) Validate() error {
	var errs []string

	pins := make(map[int]bool, len(s.Pins))
	for i, p := range s.Pins {
		errs = append(errs, s.validatePin(i, p, pins)...)
	}
	errs = append(errs, s.validateIndicators()...)

	for _, name := range s.patternNames() {
		pat := s.Patterns[name]
		if len(pat.Steps) == 0 {
			errs = append(errs, fmt.Sprintf("pattern %q has no steps", name))
		}
		for j, st := range pat.Steps {
			if st.DwellMS < 0 {
				errs = append(errs, fmt.Sprintf("pattern %q step %d has negative dwell_ms", name, j))
			}
		}
	}

	if len(s.Chains) == 0 {
		errs = append(errs, "show declares no chains")
	}
	names := make(map[string]bool, len(s.Chains))
	for i, c := range s.Chains {
		switch {
		case c.Name == "":
			errs = append(errs, fmt.Sprintf("chains[%d] has no name", i))
		case !chain.ValidName(c.Name):
			errs = append(errs, fmt.Sprintf("chain %q: names may not contain '/', '+', '#' or whitespace", c.Name))
		case strings.HasPrefix(c.Name, chain.OneShotPrefix):
			errs = append(errs, fmt.Sprintf("chain %q uses the reserved %q prefix", c.Name, chain.OneShotPrefix))
		case names[c.Name]:
			errs = append(errs, fmt.Sprintf("chain %q declared twice", c.Name))
		}
		names[c.Name] = true

		if len(c.Steps) == 0 {
			errs = append(errs, fmt.Sprintf("chain %q has no steps", c.Name))
		}
		for j, st := range c.Steps {
			if msg := validateStep(st, len(c.Steps), pins); msg != "" {
				errs = append(errs, fmt.Sprintf("chain %q step %d: %s", c.Name, j, msg))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w:\n  - %s", ErrInvalidShow, strings.Join(errs, "\n  - "))
	}
	return nil
}

func (s *Show) validatePin(i int, p PinDef, seen map[int]bool) []string {
	var errs []string
	if p.ID < 0 {
		errs = append(errs, fmt.Sprintf("pins[%d] has negative id %d", i, p.ID))
	}
	if seen[p.ID] {
		errs = append(errs, fmt.Sprintf("pin %d declared twice", p.ID))
	}
	seen[p.ID] = true

	if p.Indicator != nil && (*p.Indicator < 0 || *p.Indicator == p.ID) {
		errs = append(errs, fmt.Sprintf("pin %d has invalid indicator %d", p.ID, *p.Indicator))
	}
	if _, err := pin.ParseDirection(p.Direction); err != nil {
		errs = append(errs, fmt.Sprintf("pin %d: unknown direction %q", p.ID, p.Direction))
	}
	if _, err := pin.ParseMode(p.Mode); err != nil {
		errs = append(errs, fmt.Sprintf("pin %d: unknown mode %q", p.ID, p.Mode))
	}
	if p.Pattern != "" {
		if _, ok := s.Patterns[p.Pattern]; !ok {
			errs = append(errs, fmt.Sprintf("pin %d references unknown pattern %q", p.ID, p.Pattern))
		}
	}
	return errs
}

// validateIndicators rejects indicators that name a declared input pin.
// Undeclared indicators are driven as outputs.
func (s *Show) validateIndicators() []string {
	inputs := make(map[int]bool)
	for _, p := range s.Pins {
		if d, err := pin.ParseDirection(p.Direction); err == nil && d == pin.Input {
			inputs[p.ID] = true
		}
	}
	var errs []string
	for _, p := range s.Pins {
		if p.Indicator != nil && inputs[*p.Indicator] {
			errs = append(errs, fmt.Sprintf("pin %d indicator %d is declared as an input", p.ID, *p.Indicator))
		}
	}
	return errs
}

// validateStep checks one step against the handler set. Pin arguments must
// name a declared pin and branch targets must land inside the chain.
func validateStep(st StepDef, chainLen int, pins map[int]bool) string {
	kind, err := action.ParseKind(st.Do)
	if err != nil {
		return fmt.Sprintf("unknown action %q", st.Do)
	}
	if len(st.Args) != kind.Arity() {
		return fmt.Sprintf("%s expects %d args, got %d", kind, kind.Arity(), len(st.Args))
	}
	if st.DelayMS != nil && *st.DelayMS < 0 {
		return "negative delay_ms"
	}

	switch kind {
	case action.SetPin, action.TogglePin:
		if !pins[st.Args[0]] {
			return fmt.Sprintf("pin %d is not declared", st.Args[0])
		}
		if kind == action.SetPin && st.Args[1] != 0 && st.Args[1] != 1 {
			return fmt.Sprintf("level %d is not 0 or 1", st.Args[1])
		}
	case action.Branch:
		if t := st.Args[0]; t < 0 || t >= chainLen {
			return fmt.Sprintf("branch target %d outside [0,%d)", t, chainLen)
		}
	case action.Wait:
		if st.Args[0] < 0 {
			return "negative wait"
		}
	case action.PlaySound:
		if st.Args[1] < 0 {
			return "negative sound duration"
		}
	}
	return ""
}

func (s *Show) patternNames() []string {
	names := make([]string, 0, len(s.Patterns))
	for n := range s.Patterns {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
