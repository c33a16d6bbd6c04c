package resilience

import "golang.org/x/sync/singleflight"

// Flight deduplicates concurrent calls for the same key and hands every
// caller the typed result of the single run.
type Flight[T any] struct {
	group singleflight.Group
}

func (f *Flight[T]) Do(key string, fn func() (T, error)) (T, bool, error) {
	out, err, shared := f.group.Do(key, func() (any, error) {
		return fn()
	})
	value, _ := out.(T)
	return value, shared, err
}

// Forget drops key so the next call runs fn again even if one is in flight.
func (f *Flight[T]) Forget(key string) {
	f.group.Forget(key)
}
