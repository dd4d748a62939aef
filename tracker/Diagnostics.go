// Package tracker saves per-iteration training diagnostics to disk.
package tracker

import (
	"fmt"
	"os"
	"path/filepath"
)

// Row holds the diagnostics recorded for one training iteration
type Row struct {
	ValueLossBefore  float64 // value loss before the value epochs
	ValueLossAfter   float64 // value loss after the value epochs
	PolicyLossBefore float64 // surrogate loss before the policy epochs
	PolicyLossAfter  float64 // surrogate loss after the policy epochs
	Entropy          float64 // policy entropy after the update
	AverageReturn    float64 // average return of the collected episodes
	MSTDE            float64 // mean squared TD error of the value function
}

// Diagnostics appends one Row per training iteration to a text file,
// one line per row with space-separated columns. Appending rather
// than truncating lets interrupted runs be resumed without losing the
// already recorded iterations.
type Diagnostics struct {
	file     *os.File
	filename string
}

// NewDiagnostics returns a new Diagnostics tracker writing to a file
// named after the algorithm, environment, and run in dir. An empty
// run name is omitted from the filename; an empty dir means the
// current directory.
func NewDiagnostics(dir, algName, envName, runName string) (*Diagnostics,
	error) {
	filename := fmt.Sprintf("%v_%v", algName, envName)
	if runName != "" {
		filename = fmt.Sprintf("%v_%v", filename, runName)
	}
	filename = filepath.Join(dir, filename+".dat")

	file, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY,
		0644)
	if err != nil {
		return nil, fmt.Errorf("newDiagnostics: could not open %v: %v",
			filename, err)
	}

	return &Diagnostics{file: file, filename: filename}, nil
}

// Track appends a row of diagnostics to the tracker's file
func (d *Diagnostics) Track(row Row) error {
	_, err := fmt.Fprintf(d.file, "%e %e %e %e %e %e %e\n",
		row.ValueLossBefore, row.ValueLossAfter, row.PolicyLossBefore,
		row.PolicyLossAfter, row.Entropy, row.AverageReturn, row.MSTDE)
	if err != nil {
		return fmt.Errorf("track: could not write to %v: %v", d.filename,
			err)
	}
	return nil
}

// Filename returns the name of the file the tracker writes to
func (d *Diagnostics) Filename() string {
	return d.filename
}

// Close closes the tracker's file
func (d *Diagnostics) Close() error {
	return d.file.Close()
}
