package xmlbind

import (
	"reflect"
	"sync"

	"golang.org/x/sync/singleflight"
)

// CachedBinder memoizes the bindings of another Binder per type. Concurrent
// requests for a type that is not cached yet share a single Bind call.
// Failed bindings are not cached.
type CachedBinder struct {
	binder   Binder
	bindings sync.Map // reflect.Type -> *Binding
	group    singleflight.Group
}

// NewCachedBinder returns a CachedBinder in front of b. A nil b means
// ReflectBinder.
func NewCachedBinder(b Binder) *CachedBinder {
	if b == nil {
		b = ReflectBinder{}
	}
	return &CachedBinder{binder: b}
}

// Bind implements Binder.
func (c *CachedBinder) Bind(t reflect.Type) (*Binding, error) {
	if t == nil {
		return c.binder.Bind(t)
	}
	if b, ok := c.bindings.Load(t); ok {
		return b.(*Binding), nil
	}
	v, err, _ := c.group.Do(t.PkgPath()+"\x00"+t.String(), func() (any, error) {
		if b, ok := c.bindings.Load(t); ok {
			return b, nil
		}
		b, err := c.binder.Bind(t)
		if err != nil {
			return nil, err
		}
		c.bindings.Store(t, b)
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	b := v.(*Binding)
	if b.Type != t {
		// two distinct types with the same name shared the flight
		return c.binder.Bind(t)
	}
	return b, nil
}

// Forget drops the cached binding of t.
func (c *CachedBinder) Forget(t reflect.Type) {
	c.bindings.Delete(t)
}
