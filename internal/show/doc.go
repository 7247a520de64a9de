// Package show loads a prop's pins, patterns and chains from YAML and
// records chain runs to SQLite.
//
// A show file describes the board as it should look at boot:
//
//	name: dark-secret-box
//	pins:
//	  - {id: 4, indicator: 17, direction: output, pattern: blink}
//	  - {id: 22, direction: input}
//	patterns:
//	  blink:
//	    cycle: true
//	    steps: [{state: 1, dwell_ms: 200}, {state: 0, dwell_ms: 200}]
//	chains:
//	  - name: intro
//	    autostart: true
//	    steps:
//	      - {do: set_pin, args: [4, 1], delay_ms: 500}
//	      - {do: play_sound, args: [3, 2000]}
//	      - {do: branch, args: [0]}
//
// Parse validates the whole file and reports every problem at once. Build
// turns a valid show into a pin bank and unregistered chains.
//
// The Recorder observes engine events and writes one row per run. Runs
// are an audit trail; nothing reads them back into the engine.
package show
