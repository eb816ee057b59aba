package console

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/pterm/pterm"

	"github.com/vnykmshr/metricbus/pkg/bus"
)

// DefaultHeaderEvery is how many rows a Printer writes between headers.
const DefaultHeaderEvery = 20

// Layout turns a report into the columns of a console table.
type Layout interface {
	Columns() []string
	Row(report bus.Report) []string
}

// Printer is a console view of one metric category. It is a bus.Consumer,
// so rows are written from executor goroutines, and a Subcommand, so an
// ExclusiveToggle can switch it on and off.
//
// A disabled printer drops everything it receives. The header is printed
// before the first row after each Enable and then again every HeaderEvery
// rows.
type Printer struct {
	name   string
	layout Layout
	width  int
	every  int

	enabled atomic.Bool

	mu          sync.Mutex
	out         io.Writer
	headerShown bool
	rows        int
}

// NewPrinter creates a disabled printer writing to out.
func NewPrinter(name string, out io.Writer, layout Layout) *Printer {
	width := 12
	for _, c := range layout.Columns() {
		if len(c)+2 > width {
			width = len(c) + 2
		}
	}
	return &Printer{
		name:   name,
		layout: layout,
		width:  width,
		every:  DefaultHeaderEvery,
		out:    out,
	}
}

// WithHeaderEvery changes how often the header repeats. Zero prints it once.
func (p *Printer) WithHeaderEvery(n int) *Printer {
	p.every = n
	return p
}

// Name implements Subcommand.
func (p *Printer) Name() string {
	return p.name
}

// Enable implements Subcommand. The next row is preceded by a header unless
// PrintHeader ran since the last row.
func (p *Printer) Enable() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.enabled.Swap(true) {
		return
	}
	if p.rows > 0 {
		p.headerShown = false
	}
}

// Disable implements Subcommand.
func (p *Printer) Disable() {
	p.enabled.Store(false)
}

// Enabled reports whether rows are being printed.
func (p *Printer) Enabled() bool {
	return p.enabled.Load()
}

// PrintHeader implements Subcommand.
func (p *Printer) PrintHeader() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeHeader()
}

// HandleMetric implements bus.Consumer.
func (p *Printer) HandleMetric(report bus.Report) {
	if !p.enabled.Load() {
		return
	}
	row := p.format(p.layout.Row(report))

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.headerShown || (p.every > 0 && p.rows >= p.every) {
		p.writeHeader()
	}
	fmt.Fprintln(p.out, row)
	p.rows++
}

func (p *Printer) writeHeader() {
	fmt.Fprintln(p.out, pterm.Bold.Sprint(p.format(p.layout.Columns())))
	p.headerShown = true
	p.rows = 0
}

func (p *Printer) format(cells []string) string {
	var b strings.Builder
	for i, c := range cells {
		if i > 0 {
			b.WriteString(" |")
		}
		fmt.Fprintf(&b, "%*s", p.width, c)
	}
	return b.String()
}
