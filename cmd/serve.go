package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/adrg/xdg"
	"github.com/gookit/color"
	"github.com/grandcat/zeroconf"
	"github.com/spf13/cobra"

	"github.com/odedia/translation-layer/internal/api"
	"github.com/odedia/translation-layer/internal/cache"
	"github.com/odedia/translation-layer/internal/catalog"
	"github.com/odedia/translation-layer/internal/config"
	"github.com/odedia/translation-layer/internal/demux"
	"github.com/odedia/translation-layer/internal/engine"
	"github.com/odedia/translation-layer/internal/orchestrator"
	"github.com/odedia/translation-layer/internal/progress"
	"github.com/odedia/translation-layer/internal/vfs"
	"github.com/odedia/translation-layer/pkg/llms"
)

var (
	servePort     int
	serveCacheDir string
	serveNoMDNS   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP proxy/translation service",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on (0 picks a free port)")
	serveCmd.Flags().StringVar(&serveCacheDir, "cache-dir", "", "directory for translated-subtitle cache (default is the XDG cache dir)")
	serveCmd.Flags().BoolVar(&serveNoMDNS, "no-mdns", false, "disable advertising this service over mDNS")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := newLogger()

	if err := config.InitConfig(cfgFile); err != nil {
		return fmt.Errorf("cannot load configuration: %w", err)
	}
	settings, err := config.LoadSettings()
	if err != nil {
		return fmt.Errorf("cannot read settings: %w", err)
	}

	llmClient := llms.Initialize(log)
	provider, err := llmClient.GetDefaultProvider()
	if err != nil {
		return fmt.Errorf("no usable LLM provider is configured: %w", err)
	}

	cacheDir := serveCacheDir
	if cacheDir == "" {
		cacheDir = filepath.Join(xdg.CacheHome, "translation-layer")
	}
	store, err := cache.New(cacheDir)
	if err != nil {
		return fmt.Errorf("cannot open cache: %w", err)
	}

	reg := progress.NewRegistry()
	eng := engine.New(provider, log, settings.TranslationBatchSize)
	eng.SkipHearingImpaired = settings.SkipHearingImpaired

	cat := catalog.NewClient("https://api.opensubtitles.com/api/v1", settings.OpenSubtitlesAPIKey, settings.OpenSubtitlesUsername, settings.OpenSubtitlesPassword)

	sub := &orchestrator.Subtitle{
		Catalog:  cat,
		Cache:    store,
		Engine:   eng,
		Registry: reg,
		Log:      log,
	}

	fs, err := buildVFS(settings)
	if err != nil {
		return err
	}
	batch := orchestrator.NewBatch(fs, demux.NewMatroska(), eng, reg, log)

	handlers := api.NewHandlers(sub, batch, store, reg, llmClient, fs, log)

	serverConfig := api.DefaultConfig()
	serverConfig.Port = servePort
	server, err := api.NewServer(serverConfig, log, handlers)
	if err != nil {
		return fmt.Errorf("cannot start http server: %w", err)
	}
	if err := server.Start(); err != nil {
		return fmt.Errorf("cannot accept connections: %w", err)
	}
	color.Greenf("listening on port %d\n", server.GetPort())

	var mdnsServer *zeroconf.Server
	if !serveNoMDNS {
		mdnsServer, err = zeroconf.Register("translation-layer", "_translation-layer._tcp", "local.", server.GetPort(), nil, nil)
		if err != nil {
			log.Warn().Err(err).Msg("mDNS advertisement failed, continuing without it")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info().Msg("shutting down")
	if mdnsServer != nil {
		mdnsServer.Shutdown()
	}
	return server.Shutdown()
}

// buildVFS constructs the filesystem implementation selected by
// Settings.BrowseMode. "smb" requires SMBHost/SMBShare; anything else
// falls back to a local root, defaulting to the user's home directory
// when none is configured.
func buildVFS(settings config.Settings) (vfs.VFS, error) {
	switch settings.BrowseMode {
	case "smb":
		return vfs.NewSMB(settings.SMBHost, settings.SMBShare, settings.SMBUsername, settings.SMBPassword, settings.SMBDomain)
	default:
		root := settings.LocalRootPath
		if root == "" {
			root = xdg.Home
		}
		return vfs.NewLocal(root)
	}
}
