/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tieubaoca/arxiv-rag/service"
	"github.com/tieubaoca/arxiv-rag/types"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask questions about the indexed papers",
	Long: `With a question argument, answers it and exits. Without one, starts an
interactive session. Session commands:

  /save <name>    save the conversation
  /load <name>    continue a saved conversation
  /reset          forget the conversation
  /level <level>  switch expertise level (Beginner, Intermediate, Advanced, Expert)
  /tokens         show the running token count
  /quit           leave`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		answerer, err := a.Answerer(ctx)
		if err != nil {
			return err
		}
		levelFlag, _ := cmd.Flags().GetString("level")
		level, ok := types.ParseExpertiseLevel(levelFlag)
		if !ok && levelFlag != "" {
			return fmt.Errorf("%w: unknown expertise level %q", types.ErrInvalidConfig, levelFlag)
		}
		conv := types.NewConversationContext(level)
		out := cmd.OutOrStdout()

		if len(args) > 0 {
			res := answerer.Ask(ctx, conv, strings.Join(args, " "))
			fmt.Fprintln(out, res.Answer)
			return nil
		}

		conversations, err := a.Conversations(ctx)
		if err != nil {
			return err
		}
		s := &askSession{answerer: answerer, conversations: conversations, conv: conv, out: out}
		return s.run(ctx, cmd.InOrStdin())
	},
}

type askSession struct {
	answerer      service.QuestionAnswerer
	conversations *service.ConversationService
	conv          *types.ConversationContext
	out           io.Writer
}

func (s *askSession) run(ctx context.Context, in io.Reader) error {
	fmt.Fprintf(s.out, "Expertise level: %s. Type /quit to leave.\n", s.conv.Level)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		fmt.Fprint(s.out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if quit := s.command(ctx, line); quit {
				return nil
			}
			continue
		}

		res := s.answerer.Ask(ctx, s.conv, line)
		fmt.Fprintf(s.out, "\n%s\n\n", res.Answer)
		if res.HistoryTrimmed {
			fmt.Fprintln(s.out, "(conversation history trimmed)")
		}
		fmt.Fprintf(s.out, "[%d tokens]\n", s.conv.TotalTokens)
	}
}

func (s *askSession) command(ctx context.Context, line string) bool {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "/quit", "/exit":
		return true
	case "/save":
		saved, err := s.conversations.Save(ctx, arg, s.conv)
		if err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
			return false
		}
		fmt.Fprintf(s.out, "Conversation saved: %s\n", saved)
	case "/load":
		conv, err := s.conversations.Restore(ctx, arg)
		if err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
			return false
		}
		*s.conv = *conv
		fmt.Fprintf(s.out, "Loaded %s (%d messages, level %s)\n", arg, len(conv.Messages), conv.Level)
	case "/reset":
		s.conv.Reset()
		fmt.Fprintln(s.out, "Conversation reset")
	case "/level":
		level, ok := types.ParseExpertiseLevel(arg)
		if !ok {
			fmt.Fprintf(s.out, "Unknown level %q\n", arg)
			return false
		}
		s.conv.Level = level
		fmt.Fprintf(s.out, "Expertise level: %s\n", level)
	case "/tokens":
		fmt.Fprintf(s.out, "%d tokens\n", s.conv.TotalTokens)
	default:
		fmt.Fprintf(s.out, "Unknown command %s\n", name)
	}
	return false
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringP("level", "l", string(types.Intermediate), "expertise level")
}
