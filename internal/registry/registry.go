// Package registry holds the curated mapping from stable generator names to
// their constructors and metadata.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/kazu-source/kazu-source.github.io-sub002/internal/plugin"
)

// Sentinel errors returned by Registry operations.
var (
	ErrAlreadyRegistered = errors.New("generator already registered")
	ErrNotRegistered     = errors.New("generator not registered")
)

// ClassSuffix is the naming convention every generator class name ends with.
const ClassSuffix = "Generator"

// Descriptor describes one registered generator. It is immutable once
// registered.
type Descriptor struct {
	Name        string             `json:"name"`
	Category    string             `json:"category"`
	Description string             `json:"description"`
	ConfigKey   string             `json:"config_key"`
	ClassName   string             `json:"class_name"`
	Constructor plugin.Constructor `json:"-"`
}

// Signature returns the capability shape of the descriptor's constructor.
func (d Descriptor) Signature() plugin.Signature {
	return d.Constructor.Signature()
}

// Registry maps generator names to descriptors. It performs no I/O and is
// safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Descriptor
	order   []string
	classes map[string]string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		entries: make(map[string]Descriptor),
		classes: make(map[string]string),
	}
}

// Register adds d to the registry. A name may be registered only once;
// duplicates fail with ErrAlreadyRegistered. Use Replace to overwrite on
// purpose.
func (r *Registry) Register(d Descriptor) error {
	d, err := normalize(d)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[d.Name]; ok {
		return fmt.Errorf("register %q: %w", d.Name, ErrAlreadyRegistered)
	}
	if owner, ok := r.classes[d.ClassName]; ok {
		return fmt.Errorf("register %q: class %s already bound to %q: %w", d.Name, d.ClassName, owner, ErrAlreadyRegistered)
	}
	r.insert(d)
	return nil
}

// MustRegister is like Register but panics on error. It is meant for
// startup code registering a fixed catalog.
func (r *Registry) MustRegister(d Descriptor) {
	if err := r.Register(d); err != nil {
		panic(err)
	}
}

// Replace inserts d, overwriting any existing descriptor with the same name.
// The name keeps its original position in ListNames.
func (r *Registry) Replace(d Descriptor) error {
	d, err := normalize(d)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.entries[d.Name]; ok {
		delete(r.classes, prev.ClassName)
		r.entries[d.Name] = d
		r.classes[d.ClassName] = d.Name
		return nil
	}
	r.insert(d)
	return nil
}

func (r *Registry) insert(d Descriptor) {
	r.entries[d.Name] = d
	r.order = append(r.order, d.Name)
	r.classes[d.ClassName] = d.Name
}

// IsRegistered reports whether name has a descriptor.
func (r *Registry) IsRegistered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[name]
	return ok
}

// Metadata returns the descriptor registered under name.
func (r *Registry) Metadata(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.entries[name]
	return d, ok
}

// Lookup is like Metadata but returns ErrNotRegistered for unknown names.
func (r *Registry) Lookup(name string) (Descriptor, error) {
	d, ok := r.Metadata(name)
	if !ok {
		return Descriptor{}, fmt.Errorf("lookup %q: %w", name, ErrNotRegistered)
	}
	return d, nil
}

// LookupClass returns the descriptor bound to the given class name.
func (r *Registry) LookupClass(className string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.classes[className]
	if !ok {
		return Descriptor{}, false
	}
	return r.entries[name], true
}

// ListNames returns registered names in registration order. A non-empty
// category restricts the result to that category.
func (r *Registry) ListNames(category string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.order))
	for _, name := range r.order {
		if category != "" && r.entries[name].Category != category {
			continue
		}
		names = append(names, name)
	}
	return names
}

// ListCategories returns the distinct categories, sorted.
func (r *Registry) ListCategories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	cats := make([]string, 0)
	for _, d := range r.entries {
		if d.Category == "" || seen[d.Category] {
			continue
		}
		seen[d.Category] = true
		cats = append(cats, d.Category)
	}
	sort.Strings(cats)
	return cats
}

// List returns every descriptor in registration order.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name])
	}
	return out
}

// Len returns the number of registered generators.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func normalize(d Descriptor) (Descriptor, error) {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return d, fmt.Errorf("descriptor name is required")
	}
	if !d.Constructor.Valid() {
		return d, fmt.Errorf("register %q: constructor is missing or has no capability signature", d.Name)
	}
	if d.ClassName == "" {
		d.ClassName = ClassNameFor(d.Name)
	}
	if d.ConfigKey == "" {
		d.ConfigKey = d.Name
	}
	return d, nil
}

// ClassNameFor derives the conventional class name for a generator name:
// "addition_within_20" becomes "AdditionWithin20Generator".
func ClassNameFor(name string) string {
	caser := cases.Title(language.Und)
	var b strings.Builder
	for _, part := range strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	}) {
		b.WriteString(caser.String(part))
	}
	b.WriteString(ClassSuffix)
	return b.String()
}
