package output

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// writerIsTTY reports whether w is a file attached to a terminal.
// Buffers and pipes are not.
func writerIsTTY(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && isatty.IsTerminal(f.Fd())
}

// elapsed formats the time since start rounded to the second.
func elapsed(start time.Time) string {
	return time.Since(start).Round(time.Second).String()
}

// Progress tracks a position over a fixed number of items, one input file
// per step during ingest. On a terminal the line is redrawn in place:
//
//	Ingesting [==========>         ]  50% 2/4 bq-results-3.csv
//
// On any other writer nothing is drawn until Finish prints one summary line.
type Progress struct {
	mu      sync.Mutex
	w       io.Writer
	tty     bool
	title   string
	total   int
	pos     int
	item    string
	width   int
	started time.Time
	done    bool
}

// NewProgress creates a progress line over total items on stderr.
func NewProgress(total int, title string) *Progress {
	p := &Progress{
		title:   title,
		total:   total,
		width:   30,
		started: time.Now(),
	}
	p.SetWriter(os.Stderr)
	return p
}

// SetWriter redirects output, mainly for tests.
func (p *Progress) SetWriter(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.w = w
	p.tty = writerIsTTY(w)
}

// Step moves to pos, clamped to [0, total], and names the item now being
// worked on.
func (p *Progress) Step(pos int, item string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.step(pos, item)
}

// Advance moves one item forward.
func (p *Progress) Advance(item string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.step(p.pos+1, item)
}

func (p *Progress) step(pos int, item string) {
	if p.done {
		return
	}
	if pos < 0 {
		pos = 0
	}
	if pos > p.total {
		pos = p.total
	}
	p.pos = pos
	p.item = item
	if p.tty {
		fmt.Fprintf(p.w, "\r\033[K%s", p.line())
	}
}

// Finish marks every item done and ends the line. Later calls do nothing.
func (p *Progress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.done {
		return
	}
	p.done = true
	p.pos = p.total

	if p.tty {
		fmt.Fprintf(p.w, "\r\033[K%s\n", p.line())
		return
	}
	fmt.Fprintf(p.w, "%s: %d/%d done in %s\n", p.title, p.pos, p.total, elapsed(p.started))
}

// Abort ends the progress without completing it: a drawn line is cleared
// and no summary is printed. Later calls to Step or Finish do nothing.
func (p *Progress) Abort() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.done {
		return
	}
	p.done = true
	if p.tty {
		fmt.Fprint(p.w, "\r\033[K")
	}
}

// line renders the bar. Caller holds the lock.
func (p *Progress) line() string {
	filled, pct := 0, 0
	if p.total > 0 {
		filled = p.pos * p.width / p.total
		pct = p.pos * 100 / p.total
	}

	var bar strings.Builder
	if filled > 0 {
		bar.WriteString(strings.Repeat("=", filled-1))
		bar.WriteString(">")
	}
	bar.WriteString(strings.Repeat(" ", p.width-filled))

	n := len(strconv.Itoa(p.total))
	return fmt.Sprintf("%s [%s] %3d%% %*d/%d %s", p.title, bar.String(), pct, n, p.pos, p.total, p.item)
}

const spinnerFrames = `|/-\`

// Spinner animates a message while one long query runs, with the elapsed
// time appended. On a non-terminal writer the message is printed once.
type Spinner struct {
	mu      sync.Mutex
	w       io.Writer
	message string
	started time.Time
	stop    chan struct{}
	wg      sync.WaitGroup
}

// NewSpinner creates a spinner on stderr.
func NewSpinner(message string) *Spinner {
	return &Spinner{message: message, w: os.Stderr}
}

// SetWriter redirects output, mainly for tests.
func (s *Spinner) SetWriter(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w = w
}

// Start begins the animation. Starting a running spinner does nothing.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop != nil {
		return
	}
	s.started = time.Now()
	s.stop = make(chan struct{})

	if !writerIsTTY(s.w) {
		fmt.Fprintf(s.w, "%s...\n", s.message)
		return
	}
	s.wg.Add(1)
	go s.spin(s.stop)
}

func (s *Spinner) spin(stop <-chan struct{}) {
	defer s.wg.Done()
	t := time.NewTicker(100 * time.Millisecond)
	defer t.Stop()

	for i := 0; ; i++ {
		select {
		case <-stop:
			return
		case <-t.C:
			s.mu.Lock()
			fmt.Fprintf(s.w, "\r%c %s (%s)", spinnerFrames[i%len(spinnerFrames)], s.message, elapsed(s.started))
			s.mu.Unlock()
		}
	}
}

// Stop halts the animation and clears its line. Stopping a spinner that
// is not running does nothing.
func (s *Spinner) Stop() {
	s.mu.Lock()
	stop := s.stop
	s.stop = nil
	s.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if writerIsTTY(s.w) {
		fmt.Fprint(s.w, "\r\033[K")
	}
}

// StopWithMessage stops the spinner and prints message on its own line.
func (s *Spinner) StopWithMessage(message string) {
	s.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.w, message)
}
