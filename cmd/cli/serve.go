// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"blender-engine/internal/api"
	"blender-engine/internal/logger"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
)

var (
	servePort int
	serveBind string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Starts an HTTP server exposing the Blender operations, pipelines, host
discovery and scene presets as a JSON API. Global flags such as --host,
--blend and --timeout set the defaults for every request.`,
	Args:    cobra.NoArgs,
	GroupID: managementGroup.ID,
	RunE: func(cmd *cobra.Command, args []string) error {
		agent, cfg, err := loadAgent()
		if err != nil {
			return err
		}
		// SSH manager is already initialized in PersistentPreRunE of rootCmd
		router := mux.NewRouter()
		api.NewServer(agent, cfg).RegisterRoutes(router)

		addr := fmt.Sprintf("%s:%d", serveBind, servePort)
		srv := &http.Server{Addr: addr, Handler: router, ReadHeaderTimeout: 10 * time.Second}

		errChan := make(chan error, 1)
		go func() {
			errChan <- srv.ListenAndServe()
		}()
		statusColor.Fprintf(cmd.OutOrStdout(), "Starting API server on %s\n", identifierColor.Sprint(addr))
		logger.Info("API server listening", "addr", addr)

		select {
		case err := <-errChan:
			return err
		case <-cmd.Context().Done():
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Server stopped.")
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "port to listen on")
	serveCmd.Flags().StringVar(&serveBind, "bind", "127.0.0.1", "address to listen on")
	rootCmd.AddCommand(serveCmd)
}
