package cmd

import (
	"context"
	"net/http"
	"time"

	"cdplend/handler"
	"cdplend/metrics"
	"cdplend/worker"
	"cdplend/worker/refresher"
	"cdplend/worker/reserve"

	"github.com/drone/signal"
	"github.com/facebookgo/clock"
	"github.com/fox-one/pkg/logger"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "run the market with its api server and workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := logger.FromContext(ctx)
		ctx = logger.WithContext(ctx, log)

		database := provideDatabase()
		defer database.Close()

		clk := clock.New()
		collector := metrics.New()
		events := provideEventStore(database)
		engine := provideEngine(provideOracle(), clk)
		m := provideMarket(events, engine, clk, collector)

		if err := listPools(ctx, m); err != nil {
			return err
		}

		loc, err := time.LoadLocation(cfg.App.Location)
		if err != nil {
			return err
		}

		var workers []worker.Worker
		if spec := cfg.Worker.Refresh; spec != "" {
			w := refresher.New(spec, m, collector)
			w.Location = loc
			workers = append(workers, w)
		}

		if spec := cfg.Worker.Reserve; spec != "" && cfg.Worker.ReserveCollector != "" {
			w := reserve.New(spec, cfg.Worker.ReserveCollector, m)
			w.Location = loc
			workers = append(workers, w)
		}

		addr := cfg.Server.Addr
		if flagAddr, _ := cmd.Flags().GetString("addr"); flagAddr != "" {
			addr = flagAddr
		}

		server := &http.Server{
			Addr:    addr,
			Handler: handler.New(rootCmd.Version, m, events, collector.Handler()).Handler(),
		}

		ctx = signal.WithContextFunc(ctx, func() {
			logrus.Infoln("shutting down")
		})

		g, ctx := errgroup.WithContext(ctx)
		for _, w := range workers {
			w := w
			g.Go(func() error {
				return w.Run(ctx)
			})
		}

		g.Go(func() error {
			<-ctx.Done()

			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()

			if err := server.Shutdown(ctx); err != nil {
				logrus.WithError(err).Error("graceful shutdown server failed")
			}

			return nil
		})

		g.Go(func() error {
			logrus.Infoln("serve at", addr)
			if err := server.ListenAndServe(); err != http.ErrServerClosed {
				return err
			}

			return nil
		})

		return g.Wait()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.Flags().String("addr", "", "listen address, overrides server.addr")
}
