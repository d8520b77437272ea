// Package app wires the application together: it builds the logger, loads
// the pipeline documents, registers the action modules, and drives one run
// end to end (resolve → plan → execute → report).
package app
