package mirror

import (
	"sync"

	"github.com/Flynatol/canvas-downloader/internal/canvas"
)

// Accumulator collects download candidates from concurrent discovery tasks.
// Candidates are keyed by their local target path; the first discovery of a
// path wins and later ones are dropped, so two module items pointing at the
// same file cannot race each other onto disk.
type Accumulator struct {
	mu     sync.Mutex
	sealed bool
	seen   map[string]struct{}
	files  []canvas.File
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{seen: make(map[string]struct{})}
}

// Add records candidates that survived the change filter. Adding after Seal
// panics: discovery producing candidates after the phase barrier means the
// task accounting is broken.
func (a *Accumulator) Add(files ...canvas.File) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sealed {
		panic("mirror: candidate added after accumulator was sealed")
	}
	for _, f := range files {
		if _, dup := a.seen[f.Path]; dup {
			continue
		}
		a.seen[f.Path] = struct{}{}
		a.files = append(a.files, f)
	}
}

// Seal ends the collection phase and returns the candidates in discovery
// order.
func (a *Accumulator) Seal() []canvas.File {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sealed = true
	return a.files
}

// Len returns the number of collected candidates.
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.files)
}
