// Package hostreflect caches reflective method and constructor lookups on
// behalf of the direct emitter, treating cache misses as a genuine
// MethodResolutionError rather than a silent fallback.
package hostreflect

import (
	"reflect"
	"sync"

	"github.com/cwbudde/exprforge/internal/ir"
)

type methodKey struct {
	recv  reflect.Type
	name  string
	arity int
}

// Cache memoizes (type, method name, arity) -> reflect.Method lookups
// behind a concurrent map, shared process-wide like the class registry.
type Cache struct {
	mu      sync.RWMutex
	methods map[methodKey]reflect.Method
	ctors   map[reflect.Type]reflect.Value
}

// New constructs an empty Cache.
func New() *Cache {
	return &Cache{
		methods: make(map[methodKey]reflect.Method),
		ctors:   make(map[reflect.Type]reflect.Value),
	}
}

// ResolveMethod finds a method named name with the given argument arity on
// recv's type, caching the result. A miss is a genuine
// MethodResolutionError, never silently widened to an Object-typed
// descriptor.
func (c *Cache) ResolveMethod(recv reflect.Type, name string, arity int) (reflect.Method, error) {
	key := methodKey{recv: recv, name: name, arity: arity}

	c.mu.RLock()
	if m, ok := c.methods[key]; ok {
		c.mu.RUnlock()
		return m, nil
	}
	c.mu.RUnlock()

	m, ok := recv.MethodByName(name)
	if !ok || !arityMatches(m, recv, arity) {
		return reflect.Method{}, ir.NewMethodResolutionError("", recv.String(), name, arity)
	}

	c.mu.Lock()
	c.methods[key] = m
	c.mu.Unlock()
	return m, nil
}

// arityMatches accounts for the implicit receiver reflect.Method.Func
// carries as its first parameter.
func arityMatches(m reflect.Method, recv reflect.Type, arity int) bool {
	want := arity
	if m.Func.IsValid() {
		want++ // receiver occupies parameter 0 on the unbound Func
	}
	return m.Type.NumIn() == want
}

// ResolveConstructor looks up a registered constructor function for t
// (callers register these explicitly via RegisterConstructor since Go has
// no reflective "new" for arbitrary arity the way a JVM class file does).
func (c *Cache) ResolveConstructor(t reflect.Type) (reflect.Value, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn, ok := c.ctors[t]
	return fn, ok
}

// RegisterConstructor binds a constructor function value (its arguments
// become ObjectNew's arity-matched arguments) for t.
func (c *Cache) RegisterConstructor(t reflect.Type, fn reflect.Value) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ctors[t] = fn
}
