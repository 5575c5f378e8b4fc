package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/agentverse/pkg/history"
)

func newHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Manage stored conversations",
	}

	var output string
	list := &cobra.Command{
		Use:   "list",
		Short: "List conversations, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			summaries := a.history.Conversations()
			if output != "" {
				return printStructured(cmd.OutOrStdout(), output, summaries)
			}
			for _, s := range summaries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", s.ID, s.Title)
			}
			return nil
		},
	}
	list.Flags().StringVarP(&output, "output", "o", "", "Output format (json, yaml)")

	show := &cobra.Command{
		Use:   "show <conversation-id>",
		Short: "Print a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			conv, ok := a.history.Get(args[0])
			if !ok {
				return errors.Wrapf(history.ErrNotFound, "conversation %s", args[0])
			}
			profile := a.persona.LoadUserProfile(cmd.Context())
			agent := a.persona.LoadAgentSettings(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n\n", conv.Title)
			for _, m := range conv.Messages {
				if err := printMessage(cmd.OutOrStdout(), m, profile.Name, agent.AgentName); err != nil {
					return err
				}
			}
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <conversation-id>",
		Short: "Delete a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if _, ok := a.history.Get(args[0]); !ok {
				return errors.Wrapf(history.ErrNotFound, "conversation %s", args[0])
			}
			return a.history.DeleteConversation(cmd.Context(), args[0])
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			return a.history.ClearHistory(cmd.Context())
		},
	}

	var exportFormat string
	export := &cobra.Command{
		Use:   "export",
		Short: "Dump the full history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			return printStructured(cmd.OutOrStdout(), exportFormat, a.history.All())
		},
	}
	export.Flags().StringVarP(&exportFormat, "format", "f", "json", "Export format (json, yaml)")

	cmd.AddCommand(list, show, del, clearCmd, export)
	return cmd
}
