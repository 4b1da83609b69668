package progress

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Bar shows how many inputs have been loaded and which ones are in flight.
// It is safe for concurrent use; a nil *Bar ignores every call.
type Bar struct {
	mu         sync.Mutex
	total      int64
	current    int64
	width      int
	writer     io.Writer
	active     map[string]bool
	lastUpdate time.Time
}

func New(total int64, w io.Writer) *Bar {
	return &Bar{
		total:  total,
		width:  40,
		writer: w,
		active: make(map[string]bool),
	}
}

// Start marks name as being processed.
func (b *Bar) Start(name string) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.active[name] = true
	b.render()
}

// Done marks name as finished and advances the bar.
func (b *Bar) Done(name string) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.active, name)
	b.current++

	// Update at most every 100ms to reduce flickering
	now := time.Now()
	if now.Sub(b.lastUpdate) > 100*time.Millisecond || b.current == b.total {
		b.lastUpdate = now
		b.render()
	}
}

// render must be called with mu already locked
func (b *Bar) render() {
	if b.total == 0 {
		return
	}

	current := b.current
	if current > b.total {
		current = b.total
	}
	percent := float64(current) / float64(b.total) * 100
	filledWidth := int(float64(b.width) * float64(current) / float64(b.total))

	bar := strings.Repeat("█", filledWidth) + strings.Repeat("░", b.width-filledWidth)

	names := make([]string, 0, len(b.active))
	for name := range b.active {
		names = append(names, filepath.Base(name))
	}
	sort.Strings(names)

	var activeDisplay string
	if len(names) > 3 {
		activeDisplay = fmt.Sprintf(" | %s +%d more", strings.Join(names[:3], ", "), len(names)-3)
	} else if len(names) > 0 {
		activeDisplay = " | " + strings.Join(names, ", ")
	}

	// Clear the line and write progress
	fmt.Fprintf(b.writer, "\r\033[K[%s] %3d%% (%d/%d)%s",
		bar, int(percent), current, b.total, activeDisplay)
}

func (b *Bar) Finish() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.current = b.total
	clear(b.active)
	b.render()
	fmt.Fprintf(b.writer, "\n")
}
