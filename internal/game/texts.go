package game

import "math/rand"

// raceTexts is the fixed rotation of race texts. A room picks one at
// creation and it never changes for the life of the room, so every
// player in a race types the identical text.
var raceTexts = []string{
	"The quick brown fox jumps over the lazy dog. Programming is the art of telling another human what one wants the computer to do.",
	"Simplicity is prerequisite for reliability. The cheapest, fastest, and most reliable components are those that are not there.",
	"There are only two hard things in computer science: cache invalidation and naming things. Everything else is merely typing practice.",
	"A program that has not been tested does not work. The sooner you start to code, the longer the program will take to finish.",
	"First, solve the problem. Then, write the code. Make it correct, make it clear, make it concise, make it fast, in that order.",
}

func pickText() string {
	return raceTexts[rand.Intn(len(raceTexts))]
}
