package casregistry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/pflag"

	"xdao.co/docreg/storage"
)

// Option is one backend setting. Key doubles as the CLI flag name and the
// key in a config file's backend map.
type Option struct {
	Key     string
	Default string
	Usage   string
}

// Config carries backend settings by Option.Key.
type Config map[string]string

// Get returns the configured value for key, or def when unset.
func (c Config) Get(key, def string) string {
	if v, ok := c[key]; ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

// Backend is a build-time plugin that can open a storage.CAS implementation.
//
// Backends typically register themselves in init():
//
//	casregistry.MustRegister(casregistry.Backend{ ... })
//
// The binary must import the backend package for registration to occur.
type Backend struct {
	Name        string
	Description string
	Usage       Usage
	Options     []Option

	// Open constructs the CAS. It returns an optional close function.
	Open func(cfg Config) (storage.CAS, func() error, error)
}

var (
	mu       sync.RWMutex
	backends = map[string]Backend{}
)

// Register registers a backend.
func Register(b Backend) error {
	if b.Name == "" {
		return fmt.Errorf("casregistry: backend name is required")
	}
	if b.Open == nil {
		return fmt.Errorf("casregistry: backend %q missing Open", b.Name)
	}
	if b.Usage == 0 {
		return fmt.Errorf("casregistry: backend %q missing Usage", b.Name)
	}

	mu.Lock()
	defer mu.Unlock()
	if _, exists := backends[b.Name]; exists {
		return fmt.Errorf("casregistry: backend %q already registered", b.Name)
	}
	backends[b.Name] = b
	return nil
}

// MustRegister is like Register but panics on error.
func MustRegister(b Backend) {
	if err := Register(b); err != nil {
		panic(err)
	}
}

// List returns backends matching usage, sorted by name.
func List(usage Usage) []Backend {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Backend, 0, len(backends))
	for _, b := range backends {
		if b.Usage.allows(usage) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns backend names matching usage, sorted.
func Names(usage Usage) []string {
	bs := List(usage)
	n := make([]string, 0, len(bs))
	for _, b := range bs {
		n = append(n, b.Name)
	}
	return n
}

// RegisterFlags adds every option of every backend matching usage to fs.
func RegisterFlags(fs *pflag.FlagSet, usage Usage) {
	for _, b := range List(usage) {
		for _, o := range b.Options {
			if fs.Lookup(o.Key) != nil {
				continue
			}
			fs.String(o.Key, o.Default, fmt.Sprintf("%s (backend=%s)", o.Usage, b.Name))
		}
	}
}

// OpenFromFlags opens the named backend with option values parsed into fs.
func OpenFromFlags(fs *pflag.FlagSet, name string, usage Usage) (storage.CAS, func() error, error) {
	b, err := lookup(name, usage)
	if err != nil {
		return nil, nil, err
	}
	cfg := Config{}
	for _, o := range b.Options {
		if v, err := fs.GetString(o.Key); err == nil {
			cfg[o.Key] = v
		}
	}
	return b.Open(cfg)
}

// OpenWithConfig opens the named backend from a key/value map, e.g. one
// entry of a config file.
func OpenWithConfig(name string, usage Usage, cfg map[string]string) (storage.CAS, func() error, error) {
	b, err := lookup(name, usage)
	if err != nil {
		return nil, nil, err
	}
	known := make(map[string]struct{}, len(b.Options))
	for _, o := range b.Options {
		known[o.Key] = struct{}{}
	}
	c := Config{}
	for k, v := range cfg {
		if _, ok := known[k]; !ok {
			return nil, nil, fmt.Errorf("casregistry: backend %q has no option %q", name, k)
		}
		c[k] = v
	}
	for _, o := range b.Options {
		if _, ok := c[o.Key]; !ok && o.Default != "" {
			c[o.Key] = o.Default
		}
	}
	return b.Open(c)
}

func lookup(name string, usage Usage) (Backend, error) {
	mu.RLock()
	b, ok := backends[name]
	mu.RUnlock()
	if !ok {
		return Backend{}, fmt.Errorf("unknown backend %q", name)
	}
	if !b.Usage.allows(usage) {
		return Backend{}, fmt.Errorf("backend %q not supported in this binary", name)
	}
	return b, nil
}
