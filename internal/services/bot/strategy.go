package bot

import "github.com/mcoot/lanequeue/internal/model"

// Strategy defines how a simulated participant presents itself to the queue
type Strategy interface {
	// ChooseLanes selects the primary and secondary lane preferences
	ChooseLanes() (primary, secondary model.Lane)
	// ChooseRating selects the skill rating
	ChooseRating() int
}
