package bot

import (
	"github.com/mcoot/lanequeue/internal/dependencies/random"
	"github.com/mcoot/lanequeue/internal/model"
)

const (
	// MinRating and MaxRating bound the ratings picked by RandomStrategy
	MinRating = 800
	MaxRating = 2400
)

// RandomStrategy picks two distinct random lanes and a uniform rating
type RandomStrategy struct {
	random random.Random
}

// NewRandomStrategy creates a new RandomStrategy
func NewRandomStrategy(rnd random.Random) *RandomStrategy {
	return &RandomStrategy{random: rnd}
}

// ChooseLanes returns a random primary lane and a different secondary lane
func (s *RandomStrategy) ChooseLanes() (model.Lane, model.Lane) {
	n := len(model.Lanes)
	primary := s.random.Intn(n)
	secondary := (primary + 1 + s.random.Intn(n-1)) % n
	return model.Lanes[primary], model.Lanes[secondary]
}

// ChooseRating returns a rating in [MinRating, MaxRating)
func (s *RandomStrategy) ChooseRating() int {
	return MinRating + s.random.Intn(MaxRating-MinRating)
}
