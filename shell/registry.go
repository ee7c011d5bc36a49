package shell

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var errUsage = errors.New("usage")

// command is one shell builtin. synopsis lists its arguments: <x> is
// required, [x] optional.
type command struct {
	name     string
	synopsis string
	summary  string
	run      func(s *Shell, args []string) error

	minArgs int
	maxArgs int
}

func (c *command) usage() string {
	if c.synopsis == "" {
		return c.name
	}
	return c.name + " " + c.synopsis
}

// checkArgs rejects an argument count the synopsis does not allow.
func (c *command) checkArgs(args []string) error {
	if len(args) < c.minArgs || len(args) > c.maxArgs {
		return fmt.Errorf("%w: %s", errUsage, c.usage())
	}
	return nil
}

// arity counts the required and total arguments of a synopsis.
func arity(synopsis string) (required, total int, err error) {
	for _, f := range strings.Fields(synopsis) {
		switch {
		case strings.HasPrefix(f, "<") && strings.HasSuffix(f, ">"):
			if total > required {
				return 0, 0, fmt.Errorf("required %s after optional argument", f)
			}
			required++
		case strings.HasPrefix(f, "[") && strings.HasSuffix(f, "]"):
		default:
			return 0, 0, fmt.Errorf("bad argument %q", f)
		}
		total++
	}
	return required, total, nil
}

// registry keeps commands sorted by name.
type registry struct {
	cmds []command
}

func (r *registry) search(name string) int {
	return sort.Search(len(r.cmds), func(i int) bool { return r.cmds[i].name >= name })
}

func (r *registry) add(c command) error {
	if c.name == "" || strings.ContainsAny(c.name, " \t") {
		return fmt.Errorf("shell: bad command name %q", c.name)
	}
	if c.run == nil {
		return fmt.Errorf("shell: %s has no handler", c.name)
	}
	var err error
	if c.minArgs, c.maxArgs, err = arity(c.synopsis); err != nil {
		return fmt.Errorf("shell: %s: %w", c.name, err)
	}
	i := r.search(c.name)
	if i < len(r.cmds) && r.cmds[i].name == c.name {
		return fmt.Errorf("shell: %s registered twice", c.name)
	}
	r.cmds = append(r.cmds, command{})
	copy(r.cmds[i+1:], r.cmds[i:])
	r.cmds[i] = c
	return nil
}

func (r *registry) find(name string) (*command, bool) {
	i := r.search(name)
	if i < len(r.cmds) && r.cmds[i].name == name {
		return &r.cmds[i], true
	}
	return nil, false
}

// withPrefix returns the names starting with prefix, in order.
func (r *registry) withPrefix(prefix string) []string {
	if prefix == "" {
		return nil
	}
	var out []string
	for i := r.search(prefix); i < len(r.cmds) && strings.HasPrefix(r.cmds[i].name, prefix); i++ {
		out = append(out, r.cmds[i].name)
	}
	return out
}
