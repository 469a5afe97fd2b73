// Command dispersectl exercises the plugin end to end against a local file:
// encode zero-pads a file to a multiple of K*alignment and splits it into
// on-disk shards plus a fingerprint sidecar file; decode concatenates the
// decoded data shards from a directory of shards. The sidecar does not
// record the original length, so the decoded file is the original bytes
// followed by any zero padding encode added. It plays
// the role the teacher's cmd/client played against a live cluster, scaled
// down to a single machine's filesystem since this module has no network
// transport of its own (spec §1).
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/dattu/sizeceph-plugin/pkg/config"
	"github.com/dattu/sizeceph-plugin/pkg/ecplugin"
	"github.com/dattu/sizeceph-plugin/pkg/fingerprint"
	"github.com/dattu/sizeceph-plugin/pkg/simplexor"
	"github.com/dattu/sizeceph-plugin/pkg/sizeceph"
	"github.com/dattu/sizeceph-plugin/pkg/sizeceph/binding"
	"github.com/dattu/sizeceph-plugin/pkg/storage"
)

// sidecar is the fingerprint manifest written alongside a shard set, used by
// decode to detect a corrupted or substituted shard before it ever reaches
// the codec (mirrors the teacher's FPCC struct, minus the gossip protocol).
type sidecar struct {
	Seed   uint64            `json:"seed"`
	Fps    map[int]uint64    `json:"fingerprints"`
	Length map[int]int       `json:"lengths"`
}

func main() {
	mode := flag.String("mode", "encode", "encode | decode")
	technique := flag.String("technique", "", "sizeceph | simple_xor (defaults to config file/env)")
	forceAllChunks := flag.Bool("force-all-chunks", false, "sizeceph: require k=9,m=0 shape")
	in := flag.String("in", "", "encode: input file; decode: shard directory")
	out := flag.String("out", "", "encode: shard output directory; decode: reconstructed file")
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	if *in == "" || *out == "" {
		log.Fatal("flags -in and -out are mandatory")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config.Load: %v", err)
	}
	if *technique == "" {
		*technique = cfg.Codec.Technique
	}
	if cfg.Native.LibraryPath != "" {
		os.Setenv(binding.EnvOverride, cfg.Native.LibraryPath)
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()
	binding.SetLogger(logger)

	facade, core, err := buildFacade(*technique, *forceAllChunks, logger)
	if err != nil {
		log.Fatalf("buildFacade: %v", err)
	}
	defer closeIfCloseable(core)

	switch *mode {
	case "encode":
		if err := runEncode(facade, *in, *out); err != nil {
			log.Fatalf("encode: %v", err)
		}
	case "decode":
		if err := runDecode(facade, *in, *out); err != nil {
			log.Fatalf("decode: %v", err)
		}
	default:
		log.Fatalf("unknown mode %q; must be encode or decode", *mode)
	}
}

type closer interface{ Close() }

func closeIfCloseable(core ecplugin.Core) {
	if c, ok := core.(closer); ok {
		c.Close()
	}
}

func buildFacade(technique string, forceAllChunks bool, logger *zap.Logger) (*ecplugin.Facade, ecplugin.Core, error) {
	registry := ecplugin.NewRegistry(logger)
	profile := ecplugin.Profile{"technique": technique}
	if forceAllChunks {
		profile["force_all_chunks"] = "true"
	}

	switch technique {
	case sizeceph.Technique:
		if err := registry.PluginInit(technique, func() ecplugin.Core { return sizeceph.New(logger) }); err != nil {
			return nil, nil, err
		}
	case simplexor.Technique:
		if err := registry.PluginInit(technique, func() ecplugin.Core { return simplexor.New(logger) }); err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, fmt.Errorf("unknown technique %q", technique)
	}

	facade, err := registry.Factory(".", technique, profile, nil)
	if err != nil {
		return nil, nil, err
	}
	return facade, facade.Core(), nil
}

func runEncode(facade *ecplugin.Facade, inPath, outDir string) error {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	k := facade.GetDataChunkCount()
	a := facade.GetAlignment()
	origLen := len(data)
	padded := ecplugin.RoundUp(len(data), k*a)
	if padded > len(data) {
		grown := make([]byte, padded)
		copy(grown, data)
		data = grown
	}

	n := facade.GetChunkCount()
	want := ecplugin.RangeShardSet(n)
	shards, err := facade.Encode(want, data)
	if err != nil {
		return fmt.Errorf("Encode: %w", err)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", outDir, err)
	}

	fp, err := fingerprint.NewRandom()
	if err != nil {
		return fmt.Errorf("fingerprint.NewRandom: %w", err)
	}
	sc := sidecar{Seed: fp.Seed(), Fps: map[int]uint64{}, Length: map[int]int{}}

	for id, buf := range shards {
		path := filepath.Join(outDir, shardFileName(int(id)))
		if err := storage.AtomicWrite(path, buf, 0o644); err != nil {
			return fmt.Errorf("write shard %d: %w", id, err)
		}
		sc.Fps[int(id)] = fp.Eval(buf)
		sc.Length[int(id)] = len(buf)
	}

	sidecarBytes, err := json.Marshal(sc)
	if err != nil {
		return fmt.Errorf("marshal sidecar: %w", err)
	}
	if err := storage.AtomicWrite(filepath.Join(outDir, "fingerprints.json"), sidecarBytes, 0o644); err != nil {
		return fmt.Errorf("write sidecar: %w", err)
	}

	fmt.Printf("encoded %q into %d shards under %q (original length %d, padded %d)\n", inPath, n, outDir, origLen, padded)
	return nil
}

func runDecode(facade *ecplugin.Facade, shardDir, outPath string) error {
	sidecarBytes, err := os.ReadFile(filepath.Join(shardDir, "fingerprints.json"))
	if err != nil {
		return fmt.Errorf("read sidecar: %w", err)
	}
	var sc sidecar
	if err := json.Unmarshal(sidecarBytes, &sc); err != nil {
		return fmt.Errorf("unmarshal sidecar: %w", err)
	}
	fp := fingerprint.NewWithSeed(sc.Seed)

	n := facade.GetChunkCount()
	k := facade.GetDataChunkCount()
	chunks := ecplugin.ShardMap{}
	chunkSize := 0
	for id := 0; id < n; id++ {
		buf, err := os.ReadFile(filepath.Join(shardDir, shardFileName(id)))
		if err != nil {
			continue // absent shard: left out of chunks, as the codec expects
		}
		wantLen, ok := sc.Length[id]
		if ok && len(buf) != wantLen {
			return fmt.Errorf("shard %d has length %d, sidecar says %d: corrupted or truncated", id, len(buf), wantLen)
		}
		if wantFp, ok := sc.Fps[id]; ok && fp.Eval(buf) != wantFp {
			return fmt.Errorf("shard %d fails fingerprint check: corrupted", id)
		}
		chunks[ecplugin.ShardID(id)] = buf
		chunkSize = len(buf)
	}

	want := ecplugin.RangeShardSet(k)
	decoded, err := facade.Decode(want, chunks, chunkSize)
	if err != nil {
		return fmt.Errorf("Decode: %w", err)
	}

	var data []byte
	for _, id := range want.Sorted() {
		data = append(data, decoded[id]...)
	}
	if err := storage.AtomicWrite(outPath, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Printf("decoded %d data shards into %q (%d bytes)\n", k, outPath, len(data))
	return nil
}

func shardFileName(id int) string { return fmt.Sprintf("shard-%d.bin", id) }
