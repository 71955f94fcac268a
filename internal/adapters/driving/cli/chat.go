package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/docuchat/docuchat/internal/core/domain"
	"github.com/docuchat/docuchat/internal/core/ports/driven"
)

var chatSessionID string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with your documents",
	Long: `Starts an interactive chat. Answers stream token by token and are
grounded in the ingested documents. An empty line or Ctrl-D exits.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatSessionID, "session", "", "resume an existing session")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	if chatService == nil || sessionService == nil {
		return errors.New("chat service not configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessionID := chatSessionID
	if sessionID == "" {
		session, err := sessionService.Create(ctx)
		if err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		sessionID = session.ID
	}
	cmd.Printf("Session %s. Ask a question, empty line to exit.\n\n", sessionID)

	answer := color.New(color.FgCyan)
	faint := color.New(color.Faint)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		cmd.Print("> ")
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			break
		}

		err := chatService.Ask(ctx, sessionID, question, driven.SinkFunc(func(event domain.StreamEvent) error {
			switch event.Type {
			case domain.EventToken:
				answer.Fprint(cmd.OutOrStdout(), event.Token)
			case domain.EventCompleted:
				cmd.Println()
				if len(event.Citations) > 0 {
					faint.Fprintf(cmd.OutOrStdout(), "[%d passages cited]\n", len(event.Citations))
				}
			case domain.EventFailed, domain.EventCancelled:
				cmd.Println()
				faint.Fprintf(cmd.OutOrStdout(), "[%s: %s]\n", event.Type, event.Reason)
			}
			return nil
		}))
		if err != nil {
			if ctx.Err() != nil {
				cmd.Println("\nInterrupted.")
				return nil
			}
			cmd.Printf("Error: %v\n", err)
		}
		cmd.Println()
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}
