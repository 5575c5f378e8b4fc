package main

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/go-go-golems/agentverse/pkg/chat"
	"github.com/go-go-golems/agentverse/pkg/sandbox"
)

func newSandboxCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sandbox",
		Short: "Generate code snippets and open sandbox links",
	}

	var copyCode bool
	generate := &cobra.Command{
		Use:   "generate <prompt...>",
		Short: "Generate code from a prompt",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			sb := sandbox.New(a.flows, sandbox.WithNotifier(a.notifier))
			defer sb.Close()

			code, err := sb.Generate(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), code)
			fmt.Fprintln(cmd.ErrOrStderr(), chat.SandboxURL(code))
			if copyCode {
				return sb.Copy()
			}
			return nil
		},
	}
	generate.Flags().BoolVar(&copyCode, "copy", false, "Copy the generated code to the clipboard")

	open := &cobra.Command{
		Use:   "open <sandbox-url-or-query>",
		Short: "Print the code carried by a sandbox link and copy it to the clipboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := args[0]
			if u, err := url.Parse(query); err == nil && u.RawQuery != "" {
				query = u.RawQuery
			}
			sb, err := sandbox.NewFromQuery(query, nil)
			if err != nil {
				return err
			}
			defer sb.Close()

			fmt.Fprintln(cmd.OutOrStdout(), sb.Code())
			return sb.Copy()
		},
	}

	cmd.AddCommand(generate, open)
	return cmd
}
