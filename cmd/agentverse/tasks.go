package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/agentverse/pkg/events"
	"github.com/go-go-golems/agentverse/pkg/tasks"
)

func newPlanCommand() *cobra.Command {
	var run bool
	cmd := &cobra.Command{
		Use:   "plan <objective...>",
		Short: "Ask the agent for a plan and turn its steps into tasks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			return runDashboard(cmd, func(ctx context.Context, d *tasks.Dashboard) error {
				ts, err := d.Plan(ctx, strings.Join(args, " "))
				if err != nil {
					return err
				}
				if err := printMarkdown(out, d.PlanText()); err != nil {
					return err
				}
				printTasks(out, ts)
				if !run {
					return nil
				}
				_, err = d.Execute(ctx)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&run, "run", false, "Execute the tasks once planned")
	return cmd
}

func newTasksCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Work with simulated tasks",
	}
	run := &cobra.Command{
		Use:   "run <description...>",
		Short: "Execute one task per argument",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(cmd, func(ctx context.Context, d *tasks.Dashboard) error {
				if _, err := d.SetTasks(args...); err != nil {
					return err
				}
				_, err := d.Execute(ctx)
				return err
			})
		},
	}
	cmd.AddCommand(run)
	return cmd
}

// runDashboard runs f against a dashboard whose task events are printed as
// they are published.
func runDashboard(cmd *cobra.Command, f func(ctx context.Context, d *tasks.Dashboard) error) error {
	router, err := events.NewEventRouter(events.WithVerbose(viper.GetBool("verbose")))
	if err != nil {
		return err
	}
	defer func() { _ = router.Close() }()

	a, err := newApp(cmd.Context(), withPublisher(router))
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	router.AddHandler("task-printer", events.TopicTasks, func(msg *message.Message) error {
		return printTaskEvent(out, msg)
	})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return router.Run(ctx)
	})
	eg.Go(func() error {
		defer cancel()
		select {
		case <-router.Running():
		case <-ctx.Done():
			return ctx.Err()
		}
		return f(ctx, a.newDashboard())
	})
	return eg.Wait()
}

func printTaskEvent(w io.Writer, msg *message.Message) error {
	var head struct {
		Type events.EventType `json:"type"`
	}
	if err := events.Decode(msg, &head); err != nil {
		return err
	}

	switch head.Type {
	case events.EventTypeTaskStatus:
		var ev events.TaskStatus
		if err := events.Decode(msg, &ev); err != nil {
			return err
		}
		fmt.Fprintf(w, "[%-9s] %s\n", ev.Status, ev.Description)
		if ev.Result != "" {
			fmt.Fprintf(w, "            %s\n", ev.Result)
		}
	case events.EventTypeRunComplete:
		var ev events.RunComplete
		if err := events.Decode(msg, &ev); err != nil {
			return err
		}
		fmt.Fprintf(w, "%d tasks completed\n", ev.Completed)
	}
	return nil
}

func printTasks(w io.Writer, ts []tasks.Task) {
	for i, t := range ts {
		fmt.Fprintf(w, "%2d. [%s] %s\n", i+1, t.Status, t.Description)
	}
}
