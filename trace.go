package dcsim

import (
	"bufio"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

type TraceCategory int

const (
	TRACE_EVENTS TraceCategory = iota
	TRACE_VM_ALLOC
	TRACE_CLOUDLETS
)

func (tc TraceCategory) fileName() string {
	return []string{"events.csv", "vm_alloc.csv", "cloudlets.csv"}[tc]
}

var allTraceCategories = []TraceCategory{TRACE_EVENTS, TRACE_VM_ALLOC, TRACE_CLOUDLETS}

// OpenTraceFiles creates one file per trace category in dir. The returned func flushes and closes them.
func OpenTraceFiles(dir string) (map[TraceCategory]io.Writer, func() error, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, errors.Wrapf(err, "create trace dir %s", dir)
	}
	writers := make(map[TraceCategory]io.Writer, len(allTraceCategories))
	files := make([]*os.File, 0, len(allTraceCategories))
	bufs := make([]*bufio.Writer, 0, len(allTraceCategories))
	closeAll := func() error {
		var firstErr error
		for i, f := range files {
			if err := bufs[i].Flush(); err != nil && firstErr == nil {
				firstErr = err
			}
			if err := f.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}
	for _, tc := range allTraceCategories {
		f, err := os.Create(filepath.Join(dir, tc.fileName()))
		if err != nil {
			if closeErr := closeAll(); closeErr != nil {
				return nil, nil, errors.Wrapf(err, "create trace file %s (closing opened files: %v)", tc.fileName(), closeErr)
			}
			return nil, nil, errors.Wrapf(err, "create trace file %s", tc.fileName())
		}
		buf := bufio.NewWriter(f)
		files = append(files, f)
		bufs = append(bufs, buf)
		writers[tc] = buf
	}
	return writers, closeAll, nil
}

// writes one trace line for the category if tracing is on for it
func (sim *Simulation) logWrite(tc TraceCategory, line string) {
	w, ok := sim.traceWriters[tc]
	if !ok {
		return
	}
	if _, err := io.WriteString(w, line); err != nil {
		sim.log.WithError(err).WithField("category", tc.fileName()).Warn("trace write failed")
	}
}
