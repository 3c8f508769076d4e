// Copyright 2026 cinerecs Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cinerecs/cinerecs/base/log"
	"github.com/cinerecs/cinerecs/server"
	"github.com/juju/errors"
	"github.com/spf13/cobra"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

var serveCommand = &cobra.Command{
	Use:   "serve",
	Short: "Serve recommendations over HTTP. SIGHUP reloads models.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		e, err := openEngine(ctx, cmd)
		if err != nil {
			return err
		}
		defer e.Close()
		if port, _ := cmd.Flags().GetInt("port"); cmd.Flags().Changed("port") {
			e.Config.Server.Port = port
		}

		s := server.NewServer(e)
		tp, err := e.Config.Tracing.NewTracerProvider("cinerecs")
		if err != nil {
			return errors.Annotate(err, "failed to create tracer provider")
		}
		s.TracerProvider = tp
		if sdkProvider, ok := tp.(*tracesdk.TracerProvider); ok {
			defer func() {
				if err := sdkProvider.Shutdown(context.Background()); err != nil {
					log.Logger().Error("failed to shutdown tracer provider", zap.Error(err))
				}
			}()
		}

		// serve without models until a reload succeeds
		if err = s.Reload(ctx); err != nil {
			log.Logger().Warn("failed to load models", zap.Error(err))
		}
		hangup := make(chan os.Signal, 1)
		signal.Notify(hangup, syscall.SIGHUP)
		defer signal.Stop(hangup)
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-hangup:
					log.Logger().Info("reload models on SIGHUP")
					s.RequestReload()
				}
			}
		}()
		return s.Serve(ctx)
	},
}

func init() {
	rootCommand.AddCommand(serveCommand)
	serveCommand.Flags().Int("port", 8087, "port of the HTTP server")
}
