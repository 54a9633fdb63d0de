// Package tips holds the rotating study tips shown next to the dashboard.
package tips

type Tip struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

var all = []Tip{
	{"The Pomodoro Technique", "Study for 25 minutes, then take a 5-minute break. After 4 cycles, take a longer 15-30 minute break."},
	{"Active Recall", "Test yourself on the material instead of passively rereading. Create flashcards or practice questions."},
	{"Spaced Repetition", "Review material at increasing intervals to improve long-term retention."},
	{"Change Your Environment", "Switching study locations can help improve memory and concentration."},
	{"Teach What You Learn", "Explaining concepts to others helps solidify your understanding."},
	{"Use Multiple Resources", "Learning the same concept from different sources enhances understanding."},
	{"Create Mind Maps", "Visual organization of information helps with memory and connections."},
	{"Take Effective Notes", "Use the Cornell method or other structured note-taking systems."},
}

func Len() int {
	return len(all)
}

// At returns the tip at position n, wrapping in both directions.
func At(n int) Tip {
	return all[index(n)]
}

// Next is the position after n.
func Next(n int) int {
	return index(n + 1)
}

func index(n int) int {
	n %= len(all)
	if n < 0 {
		n += len(all)
	}
	return n
}
