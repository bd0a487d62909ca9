package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vasara-ai/parley/pkg/core/types"
	parley "github.com/vasara-ai/parley/sdk"
)

var chatCmd = &cobra.Command{
	Use:   "chat <agent>",
	Short: "Chat with an agent over a streamed text session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(args[0])
	},
}

func runChat(agent string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := newSDKClient()
	conv := parley.NewConversation()
	render := &chatRenderer{conv: conv, out: os.Stdout}
	conv.OnChange = render.onChange

	fmt.Printf("chatting with %s (Ctrl-D to exit)\n", agent)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("you> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		prompt := strings.TrimSpace(scanner.Text())
		if prompt == "" {
			continue
		}

		before := len(conv.Messages())
		if err := client.Chat.Send(ctx, conv, agent, prompt); err != nil {
			return err
		}
		render.finishTurn()
		printTurnAnnotations(os.Stdout, conv.Messages(), before)

		if ctx.Err() != nil {
			return nil
		}
	}
}

// chatRenderer streams the open bot bubble to the terminal as its text
// grows, starting a fresh line per bubble.
type chatRenderer struct {
	mu   sync.Mutex
	conv *parley.Conversation
	out  io.Writer

	openID  string
	printed int
}

func (r *chatRenderer) onChange() {
	r.mu.Lock()
	defer r.mu.Unlock()

	msgs := r.conv.Messages()
	if len(msgs) == 0 {
		return
	}
	last := msgs[len(msgs)-1]
	if last.Sender != types.SenderBot {
		return
	}
	if last.ID != r.openID {
		if r.openID != "" {
			fmt.Fprintln(r.out)
		}
		fmt.Fprint(r.out, "agent> ")
		r.openID = last.ID
		r.printed = 0
	}
	if len(last.Text) > r.printed {
		fmt.Fprint(r.out, last.Text[r.printed:])
		r.printed = len(last.Text)
	}
}

func (r *chatRenderer) finishTurn() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.openID != "" {
		fmt.Fprintln(r.out)
		r.openID = ""
		r.printed = 0
	}
}

// printTurnAnnotations reports reactions and sources produced by the turn
// that started at message index from.
func printTurnAnnotations(out io.Writer, msgs []types.Message, from int) {
	if from >= len(msgs) {
		return
	}
	for _, m := range msgs[from:] {
		if m.Sender == types.SenderUser && m.Reaction != "" {
			fmt.Fprintf(out, "(agent reacted %s)\n", m.Reaction)
		}
		if m.Sender == types.SenderBot && len(m.Sources) > 0 {
			fmt.Fprintln(out, "sources:")
			for _, src := range m.Sources {
				if src.Title != "" {
					fmt.Fprintf(out, "  - %s (%s)\n", src.Title, src.URI)
				} else {
					fmt.Fprintf(out, "  - %s\n", src.URI)
				}
			}
		}
	}
}
