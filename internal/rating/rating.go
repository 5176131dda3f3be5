// Package rating implements the Elo rating update applied after each
// completed match.
package rating

import "math"

// K is the rating volatility constant: the maximum points a single match
// can move a bot's rating.
const K = 32

// DefaultRating is assigned to a bot at registration.
const DefaultRating = 1000

// expected returns the probability that a bot rated a beats a bot rated b.
func expected(a, b int) float64 {
	return 1.0 / (1.0 + math.Pow(10, float64(b-a)/400))
}

// Update computes the post-match ratings for two bots given their
// pre-match ratings and the match outcome. score1 is 1 for a player1 win,
// 0 for a player2 win, 0.5 for a draw.
func Update(rating1, rating2 int, score1 float64) (newRating1, newRating2 int) {
	e1 := expected(rating1, rating2)
	e2 := 1 - e1
	score2 := 1 - score1

	newRating1 = rating1 + int(math.Round(K*(score1-e1)))
	newRating2 = rating2 + int(math.Round(K*(score2-e2)))
	return newRating1, newRating2
}
