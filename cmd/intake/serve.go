package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/aretw0/intake/pkg/adapters/http"
	"github.com/aretw0/intake/pkg/adapters/ws"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/ports"
	"github.com/aretw0/intake/pkg/session"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat webhook, websocket and metrics endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}
		logger := newLogger(cfg)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		st, err := build(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer st.Close()

		hub := ws.NewHub(logger)
		push := pushSender{hub: hub}
		if cfg.Server.CallbackURL != "" {
			push.callback = httpadapter.NewCallbackSender(httpadapter.CallbackConfig{
				URL:   cfg.Server.CallbackURL,
				Token: cfg.Server.CallbackToken,
			}, nil)
		}

		eng, err := st.engine(httpadapter.NewSender(push))
		if err != nil {
			return err
		}

		opts := []httpadapter.Option{
			httpadapter.WithLogger(logger),
			httpadapter.WithVerifyToken(cfg.Server.VerifyToken),
			httpadapter.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
			httpadapter.WithReadiness(st.ready),
			httpadapter.WithMetricsHandler(promhttp.HandlerFor(st.registry, promhttp.HandlerOpts{})),
			httpadapter.WithRoute("/ws", ws.NewHandler(eng, hub,
				ws.WithToken(cfg.Server.VerifyToken),
				ws.WithLogger(logger),
			)),
		}
		if cfg.Evidence.Dir != "" {
			opts = append(opts, httpadapter.WithEvidenceDir(cfg.Evidence.Dir))
		}

		srv := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           httpadapter.NewHandler(eng, opts...),
			ReadHeaderTimeout: 10 * time.Second,
		}
		sweeper := eng.Sweeper(cfg.Session.SweepInterval, cfg.Session.IdleTimeout,
			session.WithSweepLogger(logger),
			session.WithSweepHook(st.metrics.AddEvicted),
		)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logger.Info("listening", "addr", cfg.Server.Addr, "backend", cfg.Session.Backend)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			return sweeper.Run(gctx)
		})
		g.Go(func() error {
			<-gctx.Done()
			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

// pushSender delivers replies that arrive outside a webhook request: to the
// user's open websockets, then to the callback URL.
type pushSender struct {
	hub      *ws.Hub
	callback ports.Sender
}

func (p pushSender) Send(ctx context.Context, userKey string, r domain.Renderable) error {
	err := p.hub.Send(ctx, userKey, r)
	if errors.Is(err, ws.ErrOffline) && p.callback != nil {
		return p.callback.Send(ctx, userKey, r)
	}
	return err
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address; overrides server.addr")
	rootCmd.AddCommand(serveCmd)
}
