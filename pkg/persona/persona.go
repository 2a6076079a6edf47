package persona

import (
	"fmt"
	"sort"
	"strings"
)

// Persona is the voice the bot replies in.
type Persona struct {
	Name string
	// Instructions open the reply prompt.
	Instructions string
	// Requirements is appended after the conversation context.
	Requirements string
	// FirstLineOnly keeps only the first non-empty line of the model output.
	FirstLineOnly bool
	// Prefix is prepended to the shaped reply.
	Prefix string
}

// Shape turns raw model output into reply text.
func (p Persona) Shape(raw string) string {
	text := strings.TrimSpace(raw)
	if p.FirstLineOnly {
		for _, line := range strings.Split(text, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				text = line
				break
			}
		}
	}
	if text == "" {
		return ""
	}
	return p.Prefix + text
}

// Registry maps persona names to personas.
type Registry struct {
	personas map[string]Persona
}

func NewRegistry(personas ...Persona) *Registry {
	r := &Registry{personas: make(map[string]Persona, len(personas))}
	for _, p := range personas {
		r.personas[p.Name] = p
	}
	return r
}

func (r *Registry) Get(name string) (Persona, error) {
	p, ok := r.personas[name]
	if !ok {
		return Persona{}, fmt.Errorf("unknown persona %q (have: %s)", name, strings.Join(r.Names(), ", "))
	}
	return p, nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.personas))
	for name := range r.personas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Default returns the registry of built-in personas.
func Default() *Registry {
	return NewRegistry(Therapy, Meme, Thread, Impersonation, FactCheck, Sentiment)
}
