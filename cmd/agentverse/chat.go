package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tcnksm/go-input"

	"github.com/go-go-golems/agentverse/pkg/chat"
	"github.com/go-go-golems/agentverse/pkg/history"
)

const chatHelp = `Commands:
  /audio     synthesize the last reply and print its data URI
  /sandbox   print the sandbox link for the last code snippet
  /new       start a new conversation
  /quit      leave the chat`

func newChatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "chat [conversation-id]",
		Short: "Chat with the agent, resuming a conversation when an id is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			session := chat.NewSession(a.history, a.flows, a.persona, chat.WithNotifier(a.notifier))

			id := ""
			if len(args) == 1 {
				id = args[0]
			} else if id, err = a.history.StartNewChat(ctx); err != nil {
				return err
			}
			conv, err := session.Open(ctx, id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			profile := a.persona.LoadUserProfile(ctx)
			agent := a.persona.LoadAgentSettings(ctx)
			fmt.Fprintf(out, "%s (%s)\n%s\n\n", conv.Title, chat.ChatPath(conv.ID), chatHelp)
			for _, m := range conv.Messages {
				if err := printMessage(out, m, profile.Name, agent.AgentName); err != nil {
					return err
				}
			}

			ui := &input.UI{Writer: out, Reader: os.Stdin}
			var last *history.Message
			for {
				line, err := ui.Ask(profile.Name, &input.Options{
					Required:  true,
					Loop:      true,
					HideOrder: true,
				})
				if err != nil {
					// interrupt or EOF on stdin ends the session
					log.Debug().Err(err).Msg("leaving chat")
					return nil
				}

				switch strings.TrimSpace(line) {
				case "/quit", "/exit":
					return nil
				case "/new":
					id, err := a.history.StartNewChat(ctx)
					if err != nil {
						return err
					}
					if _, err := session.Open(ctx, id); err != nil {
						return err
					}
					last = nil
					fmt.Fprintf(out, "started %s\n", chat.ChatPath(id))
					continue
				case "/audio":
					if last == nil {
						fmt.Fprintln(out, "no reply to speak yet")
						continue
					}
					src, err := session.PlayAudio(ctx, last.ID)
					if err != nil {
						continue
					}
					fmt.Fprintln(out, src)
					continue
				case "/sandbox":
					if last == nil || last.Code == "" {
						fmt.Fprintln(out, "no code in the last reply")
						continue
					}
					fmt.Fprintln(out, chat.SandboxURL(last.Code))
					continue
				}

				msg, err := session.Submit(ctx, line)
				if err != nil {
					// the session already raised a toast
					continue
				}
				last = msg
				if err := printMessage(out, *msg, profile.Name, agent.AgentName); err != nil {
					return err
				}
			}
		},
	}
}

func printMessage(w io.Writer, m history.Message, userName, agentName string) error {
	if m.Role == history.RoleUser {
		_, err := fmt.Fprintf(w, "%s: %s\n", userName, m.Content)
		return err
	}
	md := fmt.Sprintf("**%s**\n\n%s", agentName, m.Content)
	if m.Code != "" {
		md += "\n\n```\n" + m.Code + "\n```"
	}
	return printMarkdown(w, md)
}
