package ai

import "context"

type attempt[T any] struct {
	name string
	run  func(ctx context.Context) (T, error)
}

// firstSuccess runs attempts strictly in order and stops at the first one that
// succeeds. Every failure is kept in order of occurrence.
func firstSuccess[T any](ctx context.Context, attempts []attempt[T], onFail func(Attempt)) (T, string, []Attempt) {
	var failed []Attempt
	for _, a := range attempts {
		v, err := a.run(ctx)
		if err == nil {
			return v, a.name, failed
		}
		f := Attempt{Name: a.name, Err: err}
		failed = append(failed, f)
		if onFail != nil {
			onFail(f)
		}
	}
	var zero T
	return zero, "", failed
}
