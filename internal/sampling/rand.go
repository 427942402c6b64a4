package sampling

import "math/rand/v2"

// pcgIncrement decorrelates the second PCG word from the seed.
const pcgIncrement = 0x9e3779b97f4a7c15

// stream is a seeded PCG generator whose state can be copied.
type stream struct {
	src *rand.PCG
	rng *rand.Rand
}

func newStream(seed uint64) stream {
	src := rand.NewPCG(seed, seed^pcgIncrement)
	return stream{src: src, rng: rand.New(src)}
}

// clone copies the generator state so both streams continue identically.
func (s stream) clone() stream {
	cp := *s.src
	return stream{src: &cp, rng: rand.New(&cp)}
}

// SeedStream returns a generator for deriving child seeds from one root seed.
func SeedStream(seed uint64) *rand.Rand {
	return newStream(seed).rng
}
