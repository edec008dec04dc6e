// Package fallback holds the "fall back to the input" policy used wherever a
// failed transformation must degrade to pass-through instead of an error.
package fallback

// Identity applies f to in and returns in unchanged when f fails.
// The returned bool is false when the fallback was taken.
func Identity[T any](in T, f func(T) (T, error)) (T, bool) {
	out, err := f(in)
	if err != nil {
		return in, false
	}
	return out, true
}
