// Command plugind is a metrics/health sidecar for the plugin: it loads a
// codec the same way a host's factory() would, runs a periodic self-check
// encode/decode round trip against synthetic data, and exposes the results
// as Prometheus metrics plus a plain-text health endpoint — the same
// counter/histogram shape the teacher's cmd/server used for its Disperse and
// Retrieve RPCs, pointed at this module's own operations instead.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/dattu/sizeceph-plugin/pkg/config"
	"github.com/dattu/sizeceph-plugin/pkg/ecplugin"
	"github.com/dattu/sizeceph-plugin/pkg/simplexor"
	"github.com/dattu/sizeceph-plugin/pkg/sizeceph"
	"github.com/dattu/sizeceph-plugin/pkg/sizeceph/binding"
	"github.com/dattu/sizeceph-plugin/pkg/storage"
)

var (
	opsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sizeceph_plugin_ops_total",
		Help: "Total encode/decode self-checks, by operation and status.",
	}, []string{"operation", "status"})

	decodeLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sizeceph_plugin_decode_duration_seconds",
		Help:    "Latency of self-check decode operations.",
		Buckets: prometheus.DefBuckets,
	})

	nativeRefCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sizeceph_plugin_native_refcount",
		Help: "Current reference count on the native codec binding.",
	})
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	selfCheckEvery := flag.Duration("self-check-interval", 30*time.Second, "self-check encode/decode period")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config.Load: %v", err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()
	binding.SetLogger(logger)
	if cfg.Native.LibraryPath != "" {
		os.Setenv(binding.EnvOverride, cfg.Native.LibraryPath)
	}

	prometheus.MustRegister(opsTotal, decodeLatency, nativeRefCount)

	var ledger *storage.Batcher
	if cfg.Diagnostics.LedgerPath != "" {
		db, err := bolt.Open(cfg.Diagnostics.LedgerPath, 0600, &bolt.Options{Timeout: 2 * time.Second})
		if err != nil {
			log.Fatalf("bolt.Open: %v", err)
		}
		defer db.Close()
		ledger, err = storage.NewBatcher(db, string(storage.LedgerBucket))
		if err != nil {
			log.Fatalf("storage.NewBatcher: %v", err)
		}
	}

	registry := ecplugin.NewRegistry(logger)
	if err := registry.PluginInit(sizeceph.Technique, func() ecplugin.Core { return sizeceph.New(logger) }); err != nil {
		log.Fatalf("register sizeceph: %v", err)
	}
	if err := registry.PluginInit(simplexor.Technique, func() ecplugin.Core { return simplexor.New(logger) }); err != nil {
		log.Fatalf("register simplexor: %v", err)
	}

	facade, err := registry.Factory(".", cfg.Codec.Technique, ecplugin.Profile{
		"technique":        cfg.Codec.Technique,
		"force_all_chunks": boolString(cfg.Codec.ForceAllChunks),
	}, nil)
	if err != nil {
		log.Fatalf("Factory(%q): %v", cfg.Codec.Technique, err)
	}

	go selfCheckLoop(facade, ledger, cfg.Codec.Technique, *selfCheckEvery, logger)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "technique=%s data_chunks=%d coding_chunks=%d native_refcount=%d\n",
			cfg.Codec.Technique, facade.GetDataChunkCount(), facade.GetCodingChunkCount(), binding.RefCount())
	})

	logger.Info("plugind listening", zap.String("addr", cfg.Metrics.ListenAddr), zap.String("technique", cfg.Codec.Technique))
	log.Fatal(http.ListenAndServe(cfg.Metrics.ListenAddr, mux))
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// selfCheckLoop runs a synthetic encode/decode round trip on a fixed
// interval so /metrics and /healthz reflect a live codec, not just a
// successfully constructed one.
func selfCheckLoop(facade *ecplugin.Facade, ledger *storage.Batcher, technique string, every time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		runSelfCheck(facade, ledger, technique, logger)
		<-ticker.C
	}
}

func runSelfCheck(facade *ecplugin.Facade, ledger *storage.Batcher, technique string, logger *zap.Logger) {
	k, n := facade.GetDataChunkCount(), facade.GetChunkCount()
	a := facade.GetAlignment()
	payload := make([]byte, ecplugin.RoundUp(k*a, k*a))
	for i := range payload {
		payload[i] = byte(i)
	}

	nativeRefCount.Set(float64(binding.RefCount()))

	want := ecplugin.RangeShardSet(n)
	shards, err := facade.Encode(want, payload)
	if err != nil {
		opsTotal.WithLabelValues("encode", statusLabel(err)).Inc()
		logger.Warn("self-check encode failed", zap.Error(err))
		return
	}
	opsTotal.WithLabelValues("encode", "ok").Inc()

	start := time.Now()
	_, err = facade.Decode(ecplugin.RangeShardSet(k), shards, len(shards[0]))
	decodeLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		opsTotal.WithLabelValues("decode", statusLabel(err)).Inc()
		logger.Warn("self-check decode failed", zap.Error(err))
		if ledger != nil {
			ledger.RecordDecodeRefusal(technique, err.Error())
		}
		return
	}
	opsTotal.WithLabelValues("decode", "ok").Inc()
}

type statusError interface{ Status() ecplugin.Status }

func statusLabel(err error) string {
	var se statusError
	if errors.As(err, &se) {
		return se.Status().String()
	}
	return "unknown"
}
