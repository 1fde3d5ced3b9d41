package command

import (
	"fmt"
	"sort"
)

// Registry resolves command words, canonical or aliased, to Commands.
type Registry struct {
	byWord map[string]*Command
	names  []string
}

// NewRegistry indexes cmds by name and alias.
//
// Precondition: every name and alias across cmds is unique.
// Postcondition: Returns a Registry or an error naming the first clash.
func NewRegistry(cmds []Command) (*Registry, error) {
	r := &Registry{byWord: make(map[string]*Command)}
	for i := range cmds {
		c := &cmds[i]
		if err := r.claim(c.Name, c); err != nil {
			return nil, err
		}
		r.names = append(r.names, c.Name)
		for _, a := range c.Aliases {
			if err := r.claim(a, c); err != nil {
				return nil, err
			}
		}
	}
	sort.Strings(r.names)
	return r, nil
}

func (r *Registry) claim(word string, c *Command) error {
	if prev, ok := r.byWord[word]; ok {
		return fmt.Errorf("command word %q claimed by both %q and %q", word, prev.Name, c.Name)
	}
	r.byWord[word] = c
	return nil
}

// DefaultRegistry indexes BuiltinCommands. It panics if the built-ins clash.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(BuiltinCommands())
	if err != nil {
		panic(fmt.Sprintf("building default registry: %v", err))
	}
	return r
}

// Resolve looks up a command by name or alias.
func (r *Registry) Resolve(word string) (*Command, bool) {
	c, ok := r.byWord[word]
	return c, ok
}

// Commands returns every command sorted by name.
func (r *Registry) Commands() []*Command {
	out := make([]*Command, len(r.names))
	for i, n := range r.names {
		out[i] = r.byWord[n]
	}
	return out
}

// InCategory returns the commands of one category sorted by name.
func (r *Registry) InCategory(category string) []*Command {
	var out []*Command
	for _, c := range r.Commands() {
		if c.Category == category {
			out = append(out, c)
		}
	}
	return out
}
