package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/bits-and-blooms/bitset"

	"github.com/vnykmshr/metricbus/pkg/common/errors"
	"github.com/vnykmshr/metricbus/pkg/common/validation"
)

// Subcommand is one printer an ExclusiveToggle can switch on and off.
type Subcommand interface {
	Name() string
	PrintHeader()
	Enable()
	Disable()
}

// ExclusiveToggle lets an operator turn on at most one of its subcommands.
// It is driven from the console goroutine only and is not safe for
// concurrent use.
type ExclusiveToggle struct {
	name        string
	description string
	out         io.Writer
	subs        []Subcommand
	active      *bitset.BitSet
}

// NewExclusiveToggle creates a toggle over subs. The first subcommand is
// the default target of a bare invocation.
func NewExclusiveToggle(name, description string, out io.Writer, subs ...Subcommand) (*ExclusiveToggle, error) {
	if err := validation.ValidateNotEmpty("console", "name", name); err != nil {
		return nil, err
	}
	if err := validation.ValidateNotNil("console", "out", out); err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, errors.NewValidationError("console", "subcommands", 0, "at least one is required")
	}
	seen := make(map[string]struct{}, len(subs))
	for _, s := range subs {
		if err := validation.ValidateNotNil("console", "subcommand", s); err != nil {
			return nil, err
		}
		if _, dup := seen[s.Name()]; dup {
			return nil, errors.NewValidationError("console", "subcommand", s.Name(), "registered twice")
		}
		seen[s.Name()] = struct{}{}
	}

	return &ExclusiveToggle{
		name:        name,
		description: description,
		out:         out,
		subs:        append([]Subcommand(nil), subs...),
		active:      bitset.New(uint(len(subs))),
	}, nil
}

// Name implements Command.
func (t *ExclusiveToggle) Name() string {
	return t.name
}

// Description implements Command.
func (t *ExclusiveToggle) Description() string {
	return t.description
}

// Usage returns the one-line synopsis of the command.
func (t *ExclusiveToggle) Usage() string {
	return fmt.Sprintf("%s [%s]", t.name, strings.Join(t.names(), "|"))
}

// Execute toggles the subcommand named by args[0], or the first one when
// args is empty. Switching from one subcommand to another disables the
// old one and prints the new one's header before enabling it.
func (t *ExclusiveToggle) Execute(args []string) {
	var target int
	switch len(args) {
	case 0:
		target = 0
	case 1:
		i, ok := t.index(args[0])
		if !ok {
			fmt.Fprintf(t.out, "invalid argument %q, valid options: %s\n", args[0], strings.Join(t.names(), ", "))
			return
		}
		target = i
	default:
		fmt.Fprintf(t.out, "usage: %s\n", t.Usage())
		return
	}

	prev, on := t.Active()
	switch {
	case on && prev == target:
		t.active.Clear(uint(target))
		t.subs[target].Disable()
	case on:
		t.active.Clear(uint(prev))
		t.subs[prev].Disable()
		t.active.Set(uint(target))
		t.subs[target].PrintHeader()
		t.subs[target].Enable()
	default:
		t.active.Set(uint(target))
		t.subs[target].Enable()
	}
}

// Active returns the index of the enabled subcommand.
func (t *ExclusiveToggle) Active() (int, bool) {
	i, ok := t.active.NextSet(0)
	return int(i), ok
}

// ActiveCount returns how many subcommands are enabled. It never exceeds one.
func (t *ExclusiveToggle) ActiveCount() int {
	return int(t.active.Count())
}

// Status describes which subcommand is enabled.
func (t *ExclusiveToggle) Status() string {
	if i, ok := t.Active(); ok {
		return fmt.Sprintf("%s: %s enabled", t.name, t.subs[i].Name())
	}
	return fmt.Sprintf("%s: none enabled", t.name)
}

func (t *ExclusiveToggle) index(name string) (int, bool) {
	for i, s := range t.subs {
		if s.Name() == name {
			return i, true
		}
	}
	return 0, false
}

func (t *ExclusiveToggle) names() []string {
	names := make([]string, len(t.subs))
	for i, s := range t.subs {
		names[i] = s.Name()
	}
	return names
}
