package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-nfsd/nfsd3/internal/config"
	"github.com/go-nfsd/nfsd3/internal/logger"
	"github.com/go-nfsd/nfsd3/internal/metrics"
	"github.com/go-nfsd/nfsd3/internal/nfs3"
	"github.com/go-nfsd/nfsd3/internal/portmap"
	"github.com/go-nfsd/nfsd3/internal/server"
	"github.com/go-nfsd/nfsd3/internal/vfs/memfs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the nfsd3 server",
	Long: `Start the NFSv3/MOUNT v3/PORTMAP v2 server in the foreground.

Use --config to specify a configuration file, or it will look for
./nfsd3.yaml and fall back to built-in defaults.

Examples:
  # Start with defaults
  nfsd3 serve

  # Start with a config file
  nfsd3 serve --config /etc/nfsd3.yaml

  # Override a setting from the config file via environment variable
  # (only keys present in the config file can be overridden)
  NFSD3_LOGGING_LEVEL=DEBUG nfsd3 serve --config /etc/nfsd3.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var collector *metrics.Collector
	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		collector = metrics.NewCollector(reg)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		metricsSrv = &http.Server{Addr: fmt.Sprintf(":%d", cfg.Metrics.Port), Handler: mux}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server error", "error", err)
			}
		}()
		logger.Info("metrics enabled", "port", cfg.Metrics.Port)
	} else {
		logger.Info("metrics disabled")
	}

	fs := memfs.New(memfs.DefaultConfig())

	limits := nfs3.Limits{
		RtMax: uint32(cfg.Limits.RtMax), RtPref: uint32(cfg.Limits.RtPref),
		WtMax: uint32(cfg.Limits.WtMax), WtPref: uint32(cfg.Limits.WtPref),
		DtPref:      uint32(cfg.Limits.DtPref),
		MaxFileSize: cfg.Limits.MaxFileSize.Uint64(),
		NameMax:     cfg.Limits.NameMax,
		PathMax:     cfg.Limits.PathMax,
	}

	listener := server.NewListener(server.Config{
		Address:             cfg.Listen.Address,
		Port:                cfg.Listen.Port,
		FS:                  fs,
		ExportName:          cfg.Export.Name,
		ExportID:            byte(cfg.Export.ID),
		Limits:              limits,
		TrackerTTL:          cfg.Tracker.TTL,
		TrackerMaxClients:   cfg.Tracker.MaxClients,
		TrackerMaxPerClient: cfg.Tracker.MaxPerClient,
		Collector:           collector,
	})

	portmapSrv := portmap.NewServer(portmap.ServerConfig{
		Port:     cfg.Listen.PortmapPort,
		Registry: listener.PortmapRegistry(),
	})

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- listener.Serve(ctx)
	}()

	portmapDone := make(chan error, 1)
	go func() {
		portmapDone <- portmapSrv.Serve(ctx)
	}()

	logger.Info("nfsd3 serving", "export", cfg.Export.Name, "port", cfg.Listen.Port, "portmap_port", cfg.Listen.PortmapPort)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-sigChan:
		logger.Info("shutdown signal received, stopping")
		cancel()
	case err := <-serverDone:
		if err != nil {
			logger.Error("server error", "error", err)
		}
		cancel()
	case err := <-portmapDone:
		if err != nil {
			logger.Error("portmap server error", "error", err)
		}
		cancel()
	}

	listener.Stop()
	portmapSrv.Stop()
	if metricsSrv != nil {
		_ = metricsSrv.Close()
	}

	<-serverDone
	<-portmapDone
	logger.Info("nfsd3 stopped")
	return nil
}
