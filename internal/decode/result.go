package decode

// Source identifies which strategy produced a decoded text. Heuristic
// results are pattern guesses and carry lower confidence than structured
// parses; callers can branch on this.
type Source string

const (
	SourceBridge    Source = "bridge"
	SourcePlist     Source = "plist"
	SourceHeuristic Source = "heuristic"
	SourceNone      Source = "none"
)

// Placeholder is the stable text returned for undecodable bodies. Callers
// always receive a displayable value, never an error, from the decoder.
const Placeholder = "rich content, undecoded"

// Result is the outcome of decoding one attributed body blob.
type Result struct {
	// Text is the recovered text, or Placeholder when Decoded is false.
	Text string
	// Decoded reports whether any strategy recovered text.
	Decoded bool
	// Source names the strategy that produced Text.
	Source Source
	// Reason explains an undecodable result. Empty on success.
	Reason string
}

func undecodable(reason string) Result {
	return Result{
		Text:   Placeholder,
		Source: SourceNone,
		Reason: reason,
	}
}

func decoded(text string, source Source) Result {
	return Result{
		Text:    text,
		Decoded: true,
		Source:  source,
	}
}
