// Package viz draws a running trial in the terminal.
//
// The view is a Bubble Tea program:
//
//   - [Model]: steps one trial per frame and draws it from above
//   - [Canvas]: braille dot canvas with a metre-to-dot [Frame]
//   - the preset picker from [RunInteractive]
//
// # Key Bindings
//
//	Space - Pause/Resume the trial
//	R     - Restart with a fresh trial
//	T     - Cycle color themes
//	?     - Show help overlay
//	[]    - Step through recent ticks
package viz
