// Command responsible-vibe runs the workflow-guidance MCP server over stdio.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yovannyr/responsible-vibe-mcp-sub004/internal/logger"
	"github.com/yovannyr/responsible-vibe-mcp-sub004/internal/server"
)

func main() {
	root := &cobra.Command{
		Use:          "responsible-vibe",
		Short:        "MCP server that guides AI coding agents through development workflows",
		SilenceUsage: true,
	}

	var debug bool
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the MCP protocol on stdin/stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(debug)
		},
	}
	serveCmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging (stderr)")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the server version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(server.Version)
		},
	}

	root.AddCommand(serveCmd, versionCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(debug bool) error {
	log, err := logger.New(debug)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	s, cleanup, err := server.New(log)
	if err != nil {
		return err
	}
	defer cleanup()

	// Stdio transport owns stdin; a signal is the only way the host tells
	// us to go away besides closing the pipe.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- mcpserver.ServeStdio(s)
	}()

	log.Info("responsible-vibe listening on stdio", zap.String("version", server.Version))

	select {
	case sig := <-sigCh:
		log.Info("shutting down", zap.String("signal", sig.String()))
		return nil
	case err := <-errCh:
		if err != nil {
			log.Error("stdio transport failed", zap.Error(err))
			return err
		}
		return nil
	}
}
