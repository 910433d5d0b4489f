package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/httplog"
	"github.com/marcelsud/shipment-relay/config"
	"github.com/marcelsud/shipment-relay/delivery"
	"github.com/marcelsud/shipment-relay/delivery/attachment"
	"github.com/marcelsud/shipment-relay/delivery/retryqueue"
	"github.com/marcelsud/shipment-relay/dispatch"
	"github.com/marcelsud/shipment-relay/internal/http/chi"
	"github.com/marcelsud/shipment-relay/metrics"
	"github.com/marcelsud/shipment-relay/registry"
	"github.com/marcelsud/shipment-relay/shipment/redis"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const TIMEOUT = 30 * time.Second

/* main wires every package together; imports only flow downwards:
 * binaries import the delivery engine, which imports storage and transport
 */

func main() {
	cfg, err := config.GetConfig()
	if err != nil {
		fmt.Println(err)
		return
	}
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT,
	)
	defer stop()

	logger := httplog.NewLogger("shipment-relay", httplog.Options{
		JSON: true,
	}).Level(cfg.GetLogLevel())

	reg := registry.New(cfg.DefaultWebhook())
	if _, err := os.Stat(cfg.WebhooksFile); err == nil {
		if err := reg.Load(cfg.WebhooksFile); err != nil {
			fmt.Println(err)
			return
		}
	} else {
		logger.Info().Str("file", cfg.WebhooksFile).Msg("no webhooks file, using the default webhook only")
	}

	loaderOpts := []attachment.Option{
		attachment.WithRoot(cfg.UploadsDir),
		attachment.WithLogger(logger),
	}
	if cfg.MinIOEnabled() {
		objects, err := attachment.NewMinIO(cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOUseSSL)
		if err != nil {
			fmt.Println(err)
			return
		}
		loaderOpts = append(loaderOpts, attachment.WithObjects(objects))
	}

	collector := metrics.NewCollector()
	queue := retryqueue.New(retryqueue.WithLogger(logger))
	sender := delivery.NewHTTPSender(
		attachment.NewLoader(loaderOpts...),
		delivery.WithRecorder(collector),
		delivery.WithSenderLogger(logger),
	)
	service := delivery.NewService(reg, sender, queue,
		delivery.WithLogger(logger),
		delivery.WithBatchPause(cfg.BatchPause),
	)

	repo, err := redis.NewStreamRepository(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisStream, cfg.RedisGroup, cfg.WorkerID)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer repo.Close(context.Background())

	exporter, err := metrics.NewOTelExporter(collector,
		metrics.WithQueue(queue),
		metrics.WithBacklog(repo),
	)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer exporter.Shutdown(context.Background())

	// deliveries outlive the signal so queued jobs can drain
	workCtx, cancelWork := context.WithCancel(context.Background())
	defer cancelWork()

	pool := dispatch.NewPool(service, cfg.DispatchWorkers, cfg.DispatchQueueSize, dispatch.WithLogger(logger))
	pool.Start(workCtx)

	consumer := dispatch.NewConsumer(repo, pool,
		dispatch.WithHeartbeat(repo, repo.Consumer()),
		dispatch.WithConsumerLogger(logger),
	)

	var background errgroup.Group
	background.Go(func() error { return consumer.Run(ctx) })
	background.Go(func() error {
		replayLoop(ctx, workCtx, service, cfg.ReplayInterval, logger)
		return nil
	})

	r := chi.Handlers(ctx, chi.Deps{
		Service:    service,
		Registry:   reg,
		Failed:     queue,
		Stats:      collector,
		Dispatcher: pool,
		Metrics:    exporter.ServeHTTP(),
		Logger:     logger,
	})
	http.Handle("/", r)
	srv := &http.Server{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: chi.RequestTimeout + TIMEOUT,
		Addr:         ":" + cfg.Port,
		Handler:      http.DefaultServeMux,
	}

	errShutdown := make(chan error, 1)
	go shutdown(srv, ctx, errShutdown)
	fmt.Printf("Listening on port %s\n", cfg.Port)
	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		fmt.Println(err)
		return
	}
	err = <-errShutdown
	if err != nil {
		fmt.Println(err)
	}

	if err := background.Wait(); err != nil && !errors.Is(err, dispatch.ErrPoolClosed) {
		fmt.Println(err)
	}

	drain := time.AfterFunc(TIMEOUT, cancelWork)
	defer drain.Stop()
	pool.Stop()
}

// replayLoop runs a replay cycle every interval until ctx ends
func replayLoop(ctx, workCtx context.Context, service delivery.UseCase, interval time.Duration, logger zerolog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res := service.Replay(workCtx)
			if res.Processed > 0 {
				logger.Info().
					Int("processed", res.Processed).
					Int("successful", res.Successful).
					Int("still_failed", res.StillFailed).
					Int("dropped", res.Dropped).
					Msg("replay cycle finished")
			}
		}
	}
}

func shutdown(server *http.Server, ctxShutdown context.Context, errShutdown chan error) {
	<-ctxShutdown.Done()

	ctxTimeout, stop := context.WithTimeout(context.Background(), TIMEOUT)
	defer stop()

	err := server.Shutdown(ctxTimeout)
	switch err {
	case nil:
		fmt.Printf("\nShutting down server...\n")
		errShutdown <- nil
	case context.DeadlineExceeded:
		errShutdown <- fmt.Errorf("Forcing closing the server")
	default:
		errShutdown <- fmt.Errorf("Forcing closing the server")
	}
}
