package adapter

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
)

// Factory builds an unconnected adapter. A nil logger means discard.
type Factory func(logger *slog.Logger) Adapter

// factories maps a lowercase export type to its constructor.
var factories sync.Map

// Register makes an export adapter available under name. It is meant to be
// called from an adapter package's init and panics on an empty name, a nil
// factory or a second registration of the same name.
func Register(name string, f Factory) {
	key := normalizeType(name)
	if key == "" || f == nil {
		panic("adapter: Register needs a name and a factory")
	}
	if _, dup := factories.LoadOrStore(key, f); dup {
		panic(fmt.Sprintf("adapter: %q registered twice", key))
	}
}

// Lookup returns the factory registered for an export type. Names are
// matched case-insensitively.
func Lookup(name string) (Factory, bool) {
	v, ok := factories.Load(normalizeType(name))
	if !ok {
		return nil, false
	}
	return v.(Factory), true
}

// NewAdapter resolves cfg.Type and builds an unconnected adapter for it.
func NewAdapter(cfg Config, logger *slog.Logger) (Adapter, error) {
	if normalizeType(cfg.Type) == "" {
		return nil, fmt.Errorf("adapter type not specified")
	}
	f, ok := Lookup(cfg.Type)
	if !ok {
		return nil, &UnknownAdapterError{Type: cfg.Type, Available: ListAdapters()}
	}
	return f(logger), nil
}

// ListAdapters returns the registered export types in sorted order.
func ListAdapters() []string {
	var names []string
	factories.Range(func(k, _ any) bool {
		names = append(names, k.(string))
		return true
	})
	slices.Sort(names)
	return names
}

// IsRegistered reports whether an export type has a factory.
func IsRegistered(name string) bool {
	_, ok := Lookup(name)
	return ok
}

func normalizeType(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// UnknownAdapterError reports an export type nobody registered.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown export type %q (available: %s); check export.type in leapphon.yaml",
		e.Type, strings.Join(e.Available, ", "))
}
