package download

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/Flynatol/canvas-downloader/internal/canvas"
)

// Progress renders one aggregate byte bar for the whole download phase.
// The zero value is a disabled progress sink.
type Progress struct {
	mu      sync.Mutex
	out     io.Writer
	enabled bool
	narrow  bool
	bar     *progressbar.ProgressBar
}

// NewProgress builds a progress renderer writing to out. Callers decide
// whether rendering is enabled; piping output to a file should pass false.
func NewProgress(out io.Writer, enabled bool) *Progress {
	narrow := false
	if f, ok := out.(*os.File); ok && enabled {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width < 100 {
			narrow = true
		}
	}
	return &Progress{out: out, enabled: enabled, narrow: narrow}
}

// Begin sizes the bar from the candidates' advertised sizes. Files without a
// known size grow the bar as their real length arrives.
func (p *Progress) Begin(files []canvas.File) {
	if p == nil || !p.enabled {
		return
	}
	var total int64
	for _, f := range files {
		total += f.Size
	}

	opts := []progressbar.Option{
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetDescription(fmt.Sprintf("downloading %d files", len(files))),
		progressbar.OptionThrottle(65 * time.Millisecond),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	}
	if p.narrow {
		opts = append(opts, progressbar.OptionFullWidth())
	} else {
		opts = append(opts, progressbar.OptionSetWidth(20))
	}

	p.mu.Lock()
	p.bar = progressbar.NewOptions64(total, opts...)
	p.mu.Unlock()
}

// Track returns the writer a download streams its bytes through. For files
// that did not advertise a size, the response length extends the bar's total.
func (p *Progress) Track(file canvas.File, contentLength int64) io.Writer {
	if p == nil || !p.enabled {
		return io.Discard
	}
	p.mu.Lock()
	bar := p.bar
	if bar != nil && file.Size == 0 && contentLength > 0 {
		bar.ChangeMax64(bar.GetMax64() + contentLength)
	}
	p.mu.Unlock()
	if bar == nil {
		return io.Discard
	}
	bar.Describe(trim(file.DisplayName, 40))
	return bar
}

// Finish completes and clears the bar.
func (p *Progress) Finish() {
	if p == nil || !p.enabled {
		return
	}
	p.mu.Lock()
	bar := p.bar
	p.mu.Unlock()
	if bar != nil {
		bar.Finish()
	}
}

func trim(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
