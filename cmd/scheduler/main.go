/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/controllers/scheduling"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/operator"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/operator/options"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/utils/logging"
)

func main() {
	opts := options.New().MustParse()
	logger := logging.NewLogger(opts.Debug).Named("scheduler")
	ctx := logging.WithLogger(context.Background(), logger)
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	op, err := operator.NewOperator(ctx, opts)
	if err != nil {
		panic(fmt.Sprintf("Unable to build operator, %s", err))
	}
	var dispatcher scheduling.Dispatcher
	switch opts.GetDispatchMode() {
	case options.DispatchLambda:
		dispatcher = scheduling.NewLambdaDispatcher(op.LambdaAPI, opts.RunnerFunctionName)
	default:
		runner := scheduling.NewRunner(op, op.ConfigStore, op.Registry, op.Emitter, op.Reporter, opts.DefaultTimezone)
		dispatcher = scheduling.NewLocalDispatcher(runner)
	}
	orchestrator := scheduling.NewOrchestrator(op.ConfigStore, op.Registry, dispatcher, opts.PayloadCeilingBytes, opts.DispatchParallelism)

	go serveMetrics(ctx, opts.MetricsPort)

	interval := time.Duration(opts.IntervalMinutes) * time.Minute
	logger.With("interval", interval.String()).Info("starting scheduling loop")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := orchestrator.RunCycle(ctx, time.Now()); err != nil {
			logger.Errorf("scheduling cycle failed: %s", err)
		}
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return
		case <-ticker.C:
		}
	}
}

func serveMetrics(ctx context.Context, port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logging.FromContext(ctx).Errorf("metrics endpoint failed: %s", err)
	}
}
