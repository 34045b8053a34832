// Command switch runs one learning-bridge process: it reads a
// per-switch port configuration, builds the port registry, MAC table,
// and spanning-tree engine, attaches to a link layer, and forwards
// frames until signaled to stop.
package main

import (
	"context"
	"encoding/binary"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/l2bridge/goswitch/internal/adminserver"
	"github.com/l2bridge/goswitch/internal/audit"
	goswitchconfig "github.com/l2bridge/goswitch/internal/config"
	"github.com/l2bridge/goswitch/internal/forwarding"
	"github.com/l2bridge/goswitch/internal/frame"
	"github.com/l2bridge/goswitch/internal/linklayer"
	"github.com/l2bridge/goswitch/internal/mactable"
	"github.com/l2bridge/goswitch/internal/metrics"
	"github.com/l2bridge/goswitch/internal/ports"
	"github.com/l2bridge/goswitch/internal/stp"
	"github.com/l2bridge/goswitch/internal/switchcfg"
	appversion "github.com/l2bridge/goswitch/internal/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	backend := flag.String("backend", "simulated", "link layer backend: simulated|rawsocket")
	configPath := flag.String("config", "", "path to daemon YAML configuration")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: switch [-backend simulated|rawsocket] [-config path] <switch_id>")
		return 2
	}
	switchID := flag.Arg(0)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("failed to load configuration", slog.Any("err", err))
		return 1
	}

	logLevel := new(slog.LevelVar)
	logLevel.Set(goswitchconfig.ParseLogLevel(cfg.Log.Level))
	logger := newLogger(cfg.Log, logLevel)

	logger.Info("goswitch starting",
		slog.String("version", appversion.Version),
		slog.String("switch_id", switchID),
		slog.String("backend", *backend),
	)

	portCfg, err := switchcfg.Load(switchcfg.ConfigPath(switchID))
	if err != nil {
		logger.Error("failed to load port configuration", slog.Any("err", err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	link, ifaceNames, err := buildLinkLayer(ctx, *backend, portCfg, logger)
	if err != nil {
		logger.Error("failed to initialize link layer", slog.Any("err", err))
		return 1
	}
	defer link.Close()

	registry, err := ports.NewRegistry(ifaceNames, portCfg)
	if err != nil {
		logger.Error("failed to build port registry", slog.Any("err", err))
		return 1
	}

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	stpEngine := stp.New(portCfg.Priority, registry.TrunkNames(), logger,
		stp.WithPathCostPerHop(cfg.STP.PathCostPerHop),
		stp.WithDropHook(collector.IncSTPNotificationsDropped),
	)
	table := mactable.New()
	switchMAC := deriveSwitchMAC(portCfg.Priority)
	fwd := forwarding.New(registry, stpEngine, table, link, switchMAC, logger, forwarding.WithMetrics(collector))

	var auditStore *audit.Store
	if cfg.Audit.Path != "" {
		auditStore, err = audit.Open(cfg.Audit.Path, logger)
		if err != nil {
			logger.Error("failed to open audit store", slog.Any("err", err))
			return 1
		}
		defer auditStore.Close()
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		runForwardingLoop(gCtx, link, fwd, collector, logger)
		return nil
	})

	g.Go(func() error {
		runHelloTimer(gCtx, fwd, cfg.STP.HelloInterval)
		return nil
	})

	g.Go(func() error {
		return runMetricsSnapshotter(gCtx, stpEngine, table, registry, collector)
	})

	if auditStore != nil {
		g.Go(func() error {
			auditStore.Run(gCtx, stpEngine.Transitions())
			return nil
		})
	}

	metricsSrv := newMetricsServer(cfg.Metrics, reg)
	g.Go(func() error {
		return serveHTTP(gCtx, metricsSrv, cfg.Metrics.Addr, "metrics", logger)
	})

	view := &switchView{registry: registry, table: table, stp: stpEngine}
	adminSrv := adminserver.New(view, cfg.Admin.JWTSecret, logger)
	adminHTTPSrv := &http.Server{Addr: cfg.Admin.Addr, Handler: adminSrv.Handler(), ReadHeaderTimeout: 10 * time.Second}
	g.Go(func() error {
		return serveHTTP(gCtx, adminHTTPSrv, cfg.Admin.Addr, "admin", logger)
	})

	g.Go(func() error {
		return runWatchdog(gCtx, logger)
	})

	notifyReady(logger)

	g.Go(func() error {
		<-gCtx.Done()
		return shutdown(logger, metricsSrv, adminHTTPSrv)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("goswitch exited with error", slog.Any("err", err))
		return 1
	}

	logger.Info("goswitch stopped")
	return 0
}

// switchView adapts the composition root's collaborators to
// adminserver.View without adminserver needing to know their
// construction details.
type switchView struct {
	registry *ports.Registry
	table    *mactable.Table
	stp      *stp.Engine
}

func (v *switchView) Registry() *ports.Registry { return v.registry }
func (v *switchView) MACTable() *mactable.Table { return v.table }
func (v *switchView) STP() *stp.Engine          { return v.stp }

func loadConfig(path string) (*goswitchconfig.Config, error) {
	if path != "" {
		return goswitchconfig.Load(path)
	}
	cfg := goswitchconfig.DefaultConfig()
	cfg.Admin.Dev = true
	return cfg, goswitchconfig.Validate(cfg)
}

func newLogger(cfg goswitchconfig.LogConfig, level *slog.LevelVar) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

// deriveSwitchMAC synthesizes a locally-administered MAC address from
// the switch's bridge id, used as the BPDU source address. There is no
// real NIC hardware address for the simulated backend to report, and
// the rawsocket backend's per-interface addresses are not a single
// switch-wide identity, so both backends use this derived value.
func deriveSwitchMAC(bridgeID uint32) frame.MAC {
	var mac frame.MAC
	mac[0] = 0x02 // locally administered, unicast
	binary.BigEndian.PutUint32(mac[2:6], bridgeID)
	return mac
}

// buildLinkLayer constructs the configured link-layer backend and
// returns the numeric-id-to-name map ports.NewRegistry needs.
//
// The simulated backend has no independent notion of "every interface
// on the host" to enumerate -- it only knows the names this switch's
// own port configuration names -- so its id assignment is synthesized
// sequentially: access ports first, then trunk ports, each group in
// file order. The rawsocket backend enumerates real kernel
// interfaces via rtnetlink and then opens a raw socket on each one the
// port configuration names.
func buildLinkLayer(ctx context.Context, backend string, portCfg switchcfg.PortConfig, logger *slog.Logger) (linklayer.LinkLayer, map[int]string, error) {
	switch backend {
	case "simulated":
		names := configuredInterfaceNames(portCfg)
		ifaceNames := make(map[int]string, len(names))
		for i, name := range names {
			ifaceNames[i] = name
		}
		return linklayer.NewSimulated(), ifaceNames, nil

	case "rawsocket":
		discovered, err := linklayer.EnumerateInterfaces()
		if err != nil {
			return nil, nil, fmt.Errorf("enumerate interfaces: %w", err)
		}
		names := configuredInterfaceNames(portCfg)
		bridge, err := linklayer.NewRawSocketBridge(ctx, names, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("open raw sockets: %w", err)
		}
		return bridge, discovered, nil

	default:
		return nil, nil, fmt.Errorf("unknown link layer backend %q", backend)
	}
}

func configuredInterfaceNames(portCfg switchcfg.PortConfig) []string {
	names := make([]string, 0, len(portCfg.Access)+len(portCfg.Trunk))
	for _, a := range portCfg.Access {
		names = append(names, a.Name)
	}
	for _, t := range portCfg.Trunk {
		names = append(names, t.Name)
	}
	return names
}

// runForwardingLoop blocks on link.Frames(), handing each frame to fwd
// until ctx is cancelled or the channel closes.
func runForwardingLoop(ctx context.Context, link linklayer.LinkLayer, fwd *forwarding.Engine, collector *metrics.Collector, logger *slog.Logger) {
	frames := link.Frames()
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-frames:
			if !ok {
				return
			}
			collector.IncFramesReceived(f.Iface)
			if err := fwd.HandleFrame(f.Iface, f.Data); err != nil {
				logger.Warn("failed to handle frame", slog.String("iface", f.Iface), slog.Any("err", err))
			}
		}
	}
}

// runHelloTimer ticks fwd.SendHello on interval until ctx is cancelled,
// on its own scheduling unit as spec.md requires.
func runHelloTimer(ctx context.Context, fwd *forwarding.Engine, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fwd.SendHello()
		}
	}
}

// runMetricsSnapshotter periodically refreshes the gauges that reflect
// point-in-time state (MAC table size, trunk states, root status)
// rather than being driven by discrete events.
func runMetricsSnapshotter(ctx context.Context, stpEngine *stp.Engine, table *mactable.Table, registry *ports.Registry, collector *metrics.Collector) error {
	const interval = 5 * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			collector.SetMACTableSize(table.Len())
			collector.SetIsRoot(stpEngine.IsRoot())
			for _, name := range registry.TrunkNames() {
				if state, ok := stpEngine.TrunkState(name); ok {
					collector.SetTrunkState(name, state == stp.Designated)
				}
			}
		}
	}
}

func newMetricsServer(cfg goswitchconfig.MetricsConfig, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return &http.Server{Addr: cfg.Addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
}

func serveHTTP(ctx context.Context, srv *http.Server, addr, name string, logger *slog.Logger) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s server on %s: %w", name, addr, err)
	}
	logger.Info(name+" server listening", slog.String("addr", addr))
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve %s on %s: %w", name, addr, err)
	}
	return nil
}

func notifyReady(logger *slog.Logger) {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		logger.Warn("failed to notify systemd readiness", slog.Any("err", err))
		return
	}
	if sent {
		logger.Info("notified systemd: READY")
	}
}

func notifyStopping(logger *slog.Logger) {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyStopping)
	if err != nil {
		logger.Warn("failed to notify systemd stopping", slog.Any("err", err))
		return
	}
	if sent {
		logger.Info("notified systemd: STOPPING")
	}
}

func runWatchdog(ctx context.Context, logger *slog.Logger) error {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		logger.Warn("failed to check systemd watchdog", slog.Any("err", err))
		return nil
	}
	if interval == 0 {
		return nil
	}
	tick := interval / 2
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := daemon.SdNotify(false, daemon.SdNotifyWatchdog); err != nil {
				logger.Warn("failed to send watchdog keepalive", slog.Any("err", err))
			}
		}
	}
}

const shutdownTimeout = 10 * time.Second

func shutdown(logger *slog.Logger, servers ...*http.Server) error {
	logger.Info("initiating graceful shutdown")
	notifyStopping(logger)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var shutdownErr error
	for _, srv := range servers {
		if err := srv.Shutdown(ctx); err != nil {
			shutdownErr = errors.Join(shutdownErr, fmt.Errorf("shutdown server: %w", err))
		}
	}
	return shutdownErr
}
