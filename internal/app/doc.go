// Package app wires the application together: logger construction,
// manifest loading, registry population, the analysis run, and report
// writing. It owns the process lifecycle between CLI parsing and exit.
package app
