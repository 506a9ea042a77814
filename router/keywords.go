package router

// DefaultLocalKeywords name fictional entities held in the local corpus.
// A query mentioning one of these can be routed without calling the LLM.
var DefaultLocalKeywords = []string{
	"sereleia",
	"xylos",
	"elara vance",
	"vance protocol",
	"aether core",
	"lys harbor",
	"dr. elara",
	"sereleian",
}

// DefaultRealtimeKeywords signal a need for up-to-date real-world data.
var DefaultRealtimeKeywords = []string{
	"today",
	"latest",
	"price",
	"prices",
	"weather",
	"traffic",
	"now",
	"breaking",
	"2024",
	"2025",
	"trend",
	"news",
	"stock",
}
