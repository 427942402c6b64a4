package sampling

// CoinFlipSequence is a sequence of N coins, each heads or tails.
// A Markov move flips a number of randomly chosen coins; the last move can be
// undone.
type CoinFlipSequence struct {
	coins   []bool // true = heads
	rand    stream
	flipped []int
	delta   int
}

// NewCoinFlipSequence creates n coins in a random initial configuration.
func NewCoinFlipSequence(n int, seed uint64) *CoinFlipSequence {
	s := &CoinFlipSequence{
		coins: make([]bool, n),
		rand:  newStream(seed),
	}
	for i := range s.coins {
		s.coins[i] = s.rand.rng.Uint64()&1 == 1
	}
	return s
}

// Len returns the number of coins.
func (s *CoinFlipSequence) Len() int {
	return len(s.coins)
}

// HeadCount counts the heads in the sequence.
func (s *CoinFlipSequence) HeadCount() int {
	count := 0
	for _, heads := range s.coins {
		if heads {
			count++
		}
	}
	return count
}

// MSteps flips stepSize randomly chosen coins (with replacement) and
// remembers them for UndoSteps.
func (s *CoinFlipSequence) MSteps(stepSize int) {
	s.flipped = s.flipped[:0]
	s.delta = 0
	if len(s.coins) == 0 {
		return
	}
	for range stepSize {
		idx := s.rand.rng.IntN(len(s.coins))
		s.coins[idx] = !s.coins[idx]
		if s.coins[idx] {
			s.delta++
		} else {
			s.delta--
		}
		s.flipped = append(s.flipped, idx)
	}
}

// UndoSteps reverts the last MSteps call.
func (s *CoinFlipSequence) UndoSteps() {
	for i := len(s.flipped) - 1; i >= 0; i-- {
		idx := s.flipped[i]
		s.coins[idx] = !s.coins[idx]
	}
	s.flipped = s.flipped[:0]
	s.delta = 0
}

// UpdateHeadCount returns the head count after the last move, given the head
// count before it, without scanning the sequence.
func (s *CoinFlipSequence) UpdateHeadCount(oldHeads int) int {
	return oldHeads + s.delta
}

// Clone returns a deep copy, including the random stream state.
func (s *CoinFlipSequence) Clone() *CoinFlipSequence {
	coins := make([]bool, len(s.coins))
	copy(coins, s.coins)
	flipped := make([]int, len(s.flipped))
	copy(flipped, s.flipped)
	return &CoinFlipSequence{
		coins:   coins,
		rand:    s.rand.clone(),
		flipped: flipped,
		delta:   s.delta,
	}
}

// AcceptFunc computes the energy (head count) after a move from the energy
// before it. Returning false marks the new state as invalid.
type AcceptFunc func(seq *CoinFlipSequence, oldEnergy int) (int, bool)

// EnergyFunc computes the energy of a state from scratch.
type EnergyFunc func(seq *CoinFlipSequence) (int, bool)

// HeadCountUpdate is the incremental AcceptFunc for head counts.
func HeadCountUpdate(seq *CoinFlipSequence, oldEnergy int) (int, bool) {
	return seq.UpdateHeadCount(oldEnergy), true
}

// HeadCountEnergy is the EnergyFunc for head counts.
func HeadCountEnergy(seq *CoinFlipSequence) (int, bool) {
	return seq.HeadCount(), true
}
