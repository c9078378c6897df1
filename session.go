package carbonchat

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// Session runs the interactive question loop against a Service. Questions
// are independent; no conversational memory is carried between them.
type Session struct {
	svc Service
	in  io.Reader
	out io.Writer
	log *zap.Logger
}

func NewSession(svc Service, in io.Reader, out io.Writer) *Session {
	return &Session{
		svc: svc,
		in:  in,
		out: out,
		log: zap.L().With(
			zap.String("component", "session"),
		),
	}
}

// Run reads questions until the exit sentinel or end of input. A failed
// question is reported inline and never terminates the loop.
func (s *Session) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(s.in)

	for {
		fmt.Fprint(s.out, "\nYour question: ")

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return err
			}

			return nil
		}

		question := scanner.Text()

		if question == SentinelExit {
			fmt.Fprintln(s.out, "Goodbye!")
			return nil
		}

		if question == "" {
			continue
		}

		s.ask(ctx, question)
	}
}

func (s *Session) ask(ctx context.Context, question string) {
	log := s.log.With(
		zap.String("question", question),
	)

	fragments, err := s.svc.Ask(ctx, question)
	if err != nil {
		log.Error(err.Error())
		fmt.Fprintln(s.out, "Sorry, I can't answer right now: "+err.Error())
		return
	}

	fmt.Fprint(s.out, "\nAnswer: ")

	for fragment := range fragments {
		if fragment.Err != nil {
			// Partial output already printed is kept.
			log.Error(fragment.Err.Error())
			fmt.Fprintln(s.out, "\n[answer interrupted: "+fragment.Err.Error()+"]")
			return
		}

		fmt.Fprint(s.out, fragment.Text)
	}

	fmt.Fprintln(s.out)
}
