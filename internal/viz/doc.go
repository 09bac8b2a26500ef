// Package viz renders orbits and convergence studies.
//
// Terminal output uses a braille [Canvas], asciigraph line charts and
// lipgloss styling. [Model] is a Bubble Tea program that integrates a
// scenario live. [SaveOrbits] and [SaveErrors] write image files with
// gonum/plot; the format follows the file extension (png, svg, pdf).
//
// # Key Bindings
//
//	Space - Pause/Resume
//	R     - Reset to the initial state
//	+/-   - Steps per frame
//	F     - Cycle the reference body
//	Q     - Quit
package viz
