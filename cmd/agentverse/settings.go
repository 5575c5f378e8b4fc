package main

import (
	"github.com/spf13/cobra"

	"github.com/go-go-golems/agentverse/pkg/persona"
)

func newSettingsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show and change the agent persona and the user profile",
	}

	var output string
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			return printStructured(cmd.OutOrStdout(), output, struct {
				Agent   persona.AgentSettings `json:"agent" yaml:"agent"`
				Profile persona.UserProfile   `json:"profile" yaml:"profile"`
				Roles   []persona.Role        `json:"roles" yaml:"roles"`
			}{
				Agent:   a.persona.LoadAgentSettings(cmd.Context()),
				Profile: a.persona.LoadUserProfile(cmd.Context()),
				Roles:   persona.Roles,
			})
		},
	}
	show.Flags().StringVarP(&output, "output", "o", "yaml", "Output format (json, yaml)")

	var name, role, instructions string
	setAgent := &cobra.Command{
		Use:   "set-agent",
		Short: "Update the agent persona; omitted flags keep their value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			settings := a.persona.LoadAgentSettings(cmd.Context())
			if cmd.Flags().Changed("name") {
				settings.AgentName = name
			}
			if cmd.Flags().Changed("role") {
				settings.AgentRole = persona.Role(role)
			}
			if cmd.Flags().Changed("instructions") {
				settings.AgentInstructions = instructions
			}
			if err := a.persona.SaveAgentSettings(cmd.Context(), settings); err != nil {
				return err
			}
			return printStructured(cmd.OutOrStdout(), "yaml", settings)
		},
	}
	setAgent.Flags().StringVar(&name, "name", "", "Agent name")
	setAgent.Flags().StringVar(&role, "role", "", "Agent role")
	setAgent.Flags().StringVar(&instructions, "instructions", "", "Custom instructions")

	var userName string
	setProfile := &cobra.Command{
		Use:   "set-profile",
		Short: "Update the user profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			profile := a.persona.LoadUserProfile(cmd.Context())
			profile.Name = userName
			if err := a.persona.SaveUserProfile(cmd.Context(), profile); err != nil {
				return err
			}
			return printStructured(cmd.OutOrStdout(), "yaml", profile)
		},
	}
	setProfile.Flags().StringVar(&userName, "name", "", "Display name")
	_ = setProfile.MarkFlagRequired("name")

	cmd.AddCommand(show, setAgent, setProfile)
	return cmd
}
