package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/agentverse/pkg/events"
	"github.com/go-go-golems/agentverse/pkg/server"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !viper.GetBool("verbose") {
				gin.SetMode(gin.ReleaseMode)
			}

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

			for _, topic := range []string{events.TopicHistory, events.TopicTasks, events.TopicToasts} {
				router.AddHandler("log-"+topic, topic, func(msg *message.Message) error {
					log.Debug().Str("topic", topic).RawJSON("payload", msg.Payload).Msg("event")
					return nil
				})
			}

			srv, err := server.New(server.Deps{
				History:   a.history,
				Persona:   a.persona,
				Flows:     a.flows,
				Dashboard: a.newDashboard(),
				Notifier:  a.notifier,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			eg, ctx := errgroup.WithContext(ctx)
			eg.Go(func() error {
				return router.Run(ctx)
			})
			eg.Go(func() error {
				select {
				case <-router.Running():
				case <-ctx.Done():
					return nil
				}
				return srv.Run(ctx, a.settings.Listen)
			})
			return eg.Wait()
		},
	}
}

