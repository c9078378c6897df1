// Package llm defines the generation side of the chatbot.
package llm

import "context"

type Config struct {
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
}

// Fragment is one piece of a streamed answer. The channel closing marks the
// end of the stream; a fragment with Err set is the final element when
// generation fails mid-stream.
type Fragment struct {
	Text string
	Err  error
}

// Generator produces an answer as a finite sequence of text fragments.
// The returned channel is closed by the generator. A stream cannot be
// resumed; callers re-issue the request after an interruption.
type Generator interface {
	Stream(ctx context.Context, system, user string) (<-chan Fragment, error)
}
