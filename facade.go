package xexec

import (
	"context"
	"fmt"
	"sync"
)

var (
	defaultRegistry   *Registry
	defaultRegistryMu sync.Mutex
)

// Default returns the process-wide Registry, building one with defaults on first use.
func Default() *Registry {
	defaultRegistryMu.Lock()
	defer defaultRegistryMu.Unlock()

	if defaultRegistry != nil {
		return defaultRegistry
	}
	r, err := NewRegistryBuilder().Build()
	if err != nil {
		panic(fmt.Sprintf("xexec: failed to initialize default registry: %v", err))
	}
	defaultRegistry = r
	return defaultRegistry
}

// SetDefault replaces the process-wide default Registry.
func SetDefault(r *Registry) {
	if r == nil {
		panic("xexec: SetDefault called with nil Registry")
	}
	defaultRegistryMu.Lock()
	defaultRegistry = r
	defaultRegistryMu.Unlock()
}

func orDefault(r *Registry) *Registry {
	if r != nil {
		return r
	}
	return Default()
}

// InvokeDynamic fires p on the default registry's dynamic bus for P.
func InvokeDynamic[P Payload](ctx context.Context, p P) (Result, error) {
	return DynamicOf[P](nil).Invoke(ctx, p)
}

// InvokeStatic fires p on the default registry's static bus for P.
func InvokeStatic[P Payload](ctx context.Context, p P) (Result, error) {
	return StaticOf[P](nil).Invoke(ctx, p)
}

// Reset clears all registrations of the default registry.
func Reset() { Default().Reset() }
