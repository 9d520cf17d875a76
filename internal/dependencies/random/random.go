package random

import "math/rand/v2"

// Random picks bot ids, lanes and ratings. Nothing it produces is secret.
type Random interface {
	// Intn returns a random int in [0, n), or 0 when n <= 0
	Intn(n int) int

	// String generates a random string of the given length from the given alphabet
	String(length int, alphabet string) string
}

// Source implements Random on the runtime's auto-seeded generator.
// Safe for concurrent use.
type Source struct{}

// New creates a new Source
func New() *Source {
	return &Source{}
}

func (Source) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return rand.IntN(n)
}

func (s Source) String(length int, alphabet string) string {
	if length <= 0 || alphabet == "" {
		return ""
	}
	b := make([]byte, length)
	for i := range b {
		b[i] = alphabet[s.Intn(len(alphabet))]
	}
	return string(b)
}
