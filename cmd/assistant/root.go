package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Biorevtech-Agents/AI-Assistant/internal/client/answer"
	"github.com/Biorevtech-Agents/AI-Assistant/internal/model/chat"
	chatService "github.com/Biorevtech-Agents/AI-Assistant/internal/service/chat"
	"github.com/Biorevtech-Agents/AI-Assistant/internal/service/voice"
	"github.com/Biorevtech-Agents/AI-Assistant/internal/storage"
)

const defaultURL = "http://localhost:5000"

type options struct {
	url      string
	noSpeech bool
	timeout  time.Duration
}

func newRootCmd() *cobra.Command {
	opts := options{}

	cmd := &cobra.Command{
		Use:   "assistant [question]",
		Short: "Ask the voice assistant from a terminal",
		Long: `assistant sends questions to the answer service (POST /ask) and speaks
the answers through a console synthesizer.

Examples:
  assistant "What is Go?"             Ask a single question
  echo "Hello" | assistant            Ask one question per stdin line
  assistant --no-speech "नमस्ते"        Print answers without speech`,
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			if len(args) > 0 {
				return run(ctx, strings.NewReader(strings.Join(args, " ")), cmd.OutOrStdout(), opts)
			}
			return run(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), opts)
		},
	}

	url := os.Getenv("ASSISTANT_URL")
	if url == "" {
		url = defaultURL
	}
	cmd.Flags().StringVarP(&opts.url, "url", "u", url, "Answer service base URL (env ASSISTANT_URL)")
	cmd.Flags().BoolVar(&opts.noSpeech, "no-speech", false, "Disable the console synthesizer")
	cmd.Flags().DurationVarP(&opts.timeout, "timeout", "t", 60*time.Second, "Per-question request timeout")

	return cmd
}

// run asks every non-blank line of in, one turn at a time. An interrupt
// cancels the turn in flight and stops reading.
func run(ctx context.Context, in io.Reader, out io.Writer, opts options) error {
	chats, err := chatService.NewService(ctx, storage.NewMemoryStore())
	if err != nil {
		return fmt.Errorf("init chats: %w", err)
	}

	loop := voice.NewLoop()
	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	go func() {
		_ = loop.Run(loopCtx)
	}()

	observer := newConsoleObserver(out)
	vopts := voice.Options{
		Answers:      answer.New(opts.url, answer.WithTimeout(opts.timeout)),
		Conversation: chats,
		Observer:     observer,
	}
	if !opts.noSpeech {
		vopts.Synth = &consoleSynth{out: out}
	}
	ctrl := voice.NewController(loop, vopts)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}

		fmt.Fprintf(out, "you: %s\n", question)
		if err := loop.Do(ctx, func() { ctrl.AskQuestion(loopCtx, question) }); err != nil {
			return err
		}

		select {
		case <-observer.done:
		case <-ctx.Done():
			_ = loop.Do(context.Background(), ctrl.CancelAll)
			select {
			case <-observer.done:
			case <-time.After(time.Second):
			}
			return nil
		}
	}
	return scanner.Err()
}

// consoleObserver prints bot messages and signals when a turn has settled.
type consoleObserver struct {
	voice.NopObserver
	out     io.Writer
	done    chan struct{}
	pending bool
	botSeen bool
}

func newConsoleObserver(out io.Writer) *consoleObserver {
	return &consoleObserver{out: out, done: make(chan struct{}, 1)}
}

func (o *consoleObserver) StateChanged(state voice.State) {
	o.pending = state.RequestPending
	o.maybeDone()
}

func (o *consoleObserver) MessageAppended(_ string, msg chat.Message) {
	if msg.Sender != chat.SenderBot {
		return
	}
	fmt.Fprintf(o.out, "assistant: %s\n", msg.Text)
	o.botSeen = true
	o.maybeDone()
}

func (o *consoleObserver) maybeDone() {
	if !o.botSeen || o.pending {
		return
	}
	o.botSeen = false
	select {
	case o.done <- struct{}{}:
	default:
	}
}

// consoleSynth "speaks" by printing the utterance with its language tag.
type consoleSynth struct {
	out io.Writer
}

func (s *consoleSynth) Speak(u *voice.Utterance) error {
	voiceName := "default"
	if u.Voice != nil {
		voiceName = u.Voice.Name
	}
	if _, err := fmt.Fprintf(s.out, "[speak %s voice=%s rate=%.1f] %s\n", u.Lang, voiceName, u.Rate, u.Text); err != nil {
		return err
	}
	u.Finish()
	return nil
}

func (s *consoleSynth) Cancel() {}

func (s *consoleSynth) Voices() []voice.Voice {
	return nil
}
