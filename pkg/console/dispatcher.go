package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pterm/pterm"

	"github.com/vnykmshr/metricbus/pkg/common/errors"
	"github.com/vnykmshr/metricbus/pkg/common/validation"
)

// Command is an operator command reachable from the console.
type Command interface {
	Name() string
	Description() string
	Execute(args []string)
}

const (
	helpCommand   = "help"
	statusCommand = "status"
)

// statusReporter is implemented by commands with state worth showing, such
// as ExclusiveToggle.
type statusReporter interface {
	Status() string
}

// Dispatcher maps the first word of a console line to a Command.
type Dispatcher struct {
	out      io.Writer
	commands map[string]Command
	order    []string
}

// NewDispatcher creates a dispatcher. Command names must be unique and may
// not shadow the built-in help and status commands.
func NewDispatcher(out io.Writer, commands ...Command) (*Dispatcher, error) {
	if err := validation.ValidateNotNil("console", "out", out); err != nil {
		return nil, err
	}
	d := &Dispatcher{
		out:      out,
		commands: make(map[string]Command, len(commands)),
	}
	for _, c := range commands {
		name := c.Name()
		if name == helpCommand || name == statusCommand {
			return nil, errors.NewValidationError("console", "command", name, "reserved")
		}
		if _, dup := d.commands[name]; dup {
			return nil, errors.NewValidationError("console", "command", name, "registered twice")
		}
		d.commands[name] = c
		d.order = append(d.order, name)
	}
	return d, nil
}

// Handle runs one console line. Blank lines are ignored.
func (d *Dispatcher) Handle(line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}
	name, args := fields[0], fields[1:]
	switch name {
	case helpCommand:
		d.help()
		return
	case statusCommand:
		d.status()
		return
	}
	c, ok := d.commands[name]
	if !ok {
		fmt.Fprintf(d.out, "unknown command %q, type %q for a list of commands\n", name, helpCommand)
		return
	}
	c.Execute(args)
}

// Run handles lines from in until it is exhausted or ctx is done. Reading
// happens on a separate goroutine that stays blocked on in until in yields
// or is closed; commands always run on the caller's goroutine.
func (d *Dispatcher) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					return err
				default:
					return ctx.Err()
				}
			}
			d.Handle(line)
		}
	}
}

func (d *Dispatcher) help() {
	data := [][]string{{"command", "description"}}
	for _, name := range d.order {
		c := d.commands[name]
		usage := name
		if u, ok := c.(interface{ Usage() string }); ok {
			usage = u.Usage()
		}
		data = append(data, []string{usage, c.Description()})
	}
	data = append(data, []string{statusCommand, "show the state of each command"})
	data = append(data, []string{helpCommand, "list commands"})

	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		for _, row := range data[1:] {
			fmt.Fprintf(d.out, "%s\t%s\n", row[0], row[1])
		}
		return
	}
	fmt.Fprintln(d.out, table)
}

func (d *Dispatcher) status() {
	reported := false
	for _, name := range d.order {
		if r, ok := d.commands[name].(statusReporter); ok {
			fmt.Fprintln(d.out, r.Status())
			reported = true
		}
	}
	if !reported {
		fmt.Fprintln(d.out, "no command reports status")
	}
}
