package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-go-golems/sevasetu/pkg/assistant"
	"github.com/go-go-golems/sevasetu/pkg/events"
	"github.com/go-go-golems/sevasetu/pkg/server"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the voice chat HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
	cmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
	cmd.Flags().Bool("verbose-events", false, "Route the event bus' own logging through the logger")
	cobra.CheckErr(viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr")))
	cobra.CheckErr(viper.BindPFlag("verbose-events", cmd.Flags().Lookup("verbose-events")))
	return cmd
}

func serve(ctx context.Context) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}

	router, err := events.NewEventRouter(events.WithVerbose(viper.GetBool("verbose-events")))
	if err != nil {
		return err
	}
	defer func() {
		_ = router.Close()
	}()
	router.AddHandler("log-agent-events", events.TopicAgent, events.NewLoggingHandler(log.Logger))

	a, err := newApp(ctx, s, appOptions{
		speech:  true,
		history: true,
		extra:   []assistant.Option{assistant.WithEventSinks(router.Sink(events.TopicAgent))},
	})
	if err != nil {
		return err
	}
	defer a.Close()

	srv := server.NewServer(a.assistant,
		server.WithCORSOrigin(s.Server.CORSOrigin),
		server.WithRateLimit(s.Server.RateLimit, s.Server.RateBurst),
		server.WithMaxUploadBytes(s.Server.MaxUploadBytes),
		server.WithShutdownTimeout(s.Server.ShutdownTimeout),
	)

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
		err := srv.Run(ctx, s.Server.Addr)
		// stop the router once the server has drained
		_ = router.Close()
		return err
	})
	return eg.Wait()
}
