package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"maamcp/internal/capture"
	"maamcp/internal/config"
	"maamcp/internal/dispatch"
	"maamcp/internal/engine"
	"maamcp/internal/engine/local"
	"maamcp/internal/mcp"
	"maamcp/internal/pipeline"
	"maamcp/internal/registry"
	"maamcp/internal/session"
)

const version = "0.3.0"

const serverInstructions = `MaaMCP drives Android devices (over ADB) and desktop windows through
handle-based automation tools. Discover targets with find_adb_device_list or
find_window_list, connect to get a controller handle, then drive the target
with click, swipe, input_text, ocr and friends. Handles stay valid for the
lifetime of this server process.`

var (
	// Global flags
	verbose    bool
	configPath string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "maamcp",
	Short: "MaaMCP - device automation over the Model Context Protocol",
	Long: `MaaMCP exposes Android devices (via ADB) and desktop windows as MCP
tools: discovery, connection, screen capture, text recognition, and input
injection, all addressed through opaque handles.

Run without arguments to serve MCP over stdio.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// All diagnostics go to stderr; stdout belongs to the protocol.
		zcfg := zap.NewProductionConfig()
		zcfg.OutputPaths = []string{"stderr"}
		zcfg.ErrorOutputPaths = []string{"stderr"}
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve MCP over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools this server exposes",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, t := range buildTools() {
			fmt.Printf("%-24s %s\n", t.Name, t.Description)
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the server version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("maamcp %s\n", version)
	},
}

var protocolCmd = &cobra.Command{
	Use:   "protocol",
	Short: "Print the pipeline protocol reference",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Print(pipeline.ProtocolDocumentation)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(protocolCmd)
}

// buildTools constructs a throwaway server just to enumerate the surface.
func buildTools() []mcp.Tool {
	srv := mcp.NewServer("maamcp", version, "", nil, nil, zap.NewNop())
	d := dispatch.New(registry.New(), nil, nil, nil, zap.NewNop())
	mcp.RegisterAutomationTools(srv, d, "")
	return srv.Tools()
}

func serve() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.ScratchDir, 0o755); err != nil {
		return fmt.Errorf("create scratch dir: %w", err)
	}

	var recognizer engine.Recognizer
	if cfg.Recognizer.Command != "" {
		recognizer = local.NewCommandRecognizer(cfg.Recognizer.Command, cfg.Recognizer.Args...)
	}

	eng := local.New(cfg.Adb.Path, recognizer, logger.Named("engine"))
	reg := registry.New()
	composer := session.NewComposer(reg, eng, logger.Named("session"))
	captures := capture.NewStore(cfg.ScratchDir)
	dispatcher := dispatch.New(reg, composer, eng, captures, logger.Named("dispatch"))

	srv := mcp.NewServer("MaaMCP", version, serverInstructions, os.Stdin, os.Stdout, logger.Named("mcp"))
	mcp.RegisterAutomationTools(srv, dispatcher, cfg.DataDir)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("serving MCP over stdio",
		zap.String("version", version),
		zap.String("scratch_dir", cfg.ScratchDir))

	serveErr := srv.Serve(ctx)
	if errors.Is(serveErr, context.Canceled) {
		// Signal-driven shutdown is orderly, not an error.
		serveErr = nil
	}

	if err := dispatcher.Cleanup(); err != nil {
		logger.Warn("capture cleanup failed", zap.Error(err))
	}
	return serveErr
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
