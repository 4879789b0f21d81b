/*
Copyright © 2026 Anton Brekhov <anton@abrekhov.ru>

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
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abrekhov/cloudserver/pkg/destination"
	"github.com/abrekhov/cloudserver/pkg/server"
	"github.com/abrekhov/cloudserver/pkg/transfer"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	keyServeAddr     = "serve.addr"
	keyServeRoot     = "serve.root"
	keyServeDir      = "serve.dir"
	keyServeSpoolDir = "serve.spool_dir"
	keyServeTarget   = "serve.default_target"

	shutdownTimeout = 15 * time.Second
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP upload API",
	Long: `Serve accepts multipart uploads on POST /api/uploads and streams them to the
local root directory or, when --ftp-addr is set, to an FTP server
(?target=ftp). Progress is available on GET /api/uploads/{id}.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", ":8080", "Listen address")
	serveCmd.Flags().String("root", "uploads", "Local directory uploads are stored in")
	serveCmd.Flags().String("dir", "", "Subdirectory inside every destination")
	serveCmd.Flags().String("spool-dir", "", "Directory request bodies are parked in (default system temp)")
	serveCmd.Flags().String("default-target", server.TargetLocal, "Target used when a request names none")
	bindFlags(serveCmd, map[string]string{
		keyServeAddr:     "addr",
		keyServeRoot:     "root",
		keyServeDir:      "dir",
		keyServeSpoolDir: "spool-dir",
		keyServeTarget:   "default-target",
	}, false)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := newEngine()
	if err != nil {
		return err
	}

	root := viper.GetString(keyServeRoot)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("failed to create root directory: %w", err)
	}
	dests := map[string]transfer.Destination{
		server.TargetLocal: destination.NewLocalRoot(root),
	}
	if ftpCfg := ftpConfig(); ftpCfg.Addr != "" {
		dests[server.TargetFTP] = destination.NewFTP(ftpCfg)
	}

	registry := transfer.NewRegistry(context.Background(), engine)
	defer registry.Shutdown()

	srv, err := server.New(server.Options{
		Registry:      registry,
		Destinations:  dests,
		DefaultTarget: viper.GetString(keyServeTarget),
		Dir:           viper.GetString(keyServeDir),
		SpoolDir:      viper.GetString(keyServeSpoolDir),
	})
	if err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:              viper.GetString(keyServeAddr),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.ListenAndServe()
	}()
	log.WithFields(log.Fields{
		"addr":    httpSrv.Addr,
		"root":    root,
		"targets": srv.Targets(),
	}).Infoln("Server started")

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Infoln("Shutting down...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warnln("Server shutdown incomplete")
	}
	return nil
}
