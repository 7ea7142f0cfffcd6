// Command yactfrdump decodes a CTF packet sequence against a JSON
// metadata description and prints the resulting element stream, either
// as human-readable text or as newline-delimited JSON.
package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/frdeso/yactfr/internal/ctfconfig"
	"github.com/frdeso/yactfr/internal/elem"
	"github.com/frdeso/yactfr/internal/metadata"
	"github.com/frdeso/yactfr/internal/obslog"
	"github.com/frdeso/yactfr/internal/proc"
	"github.com/frdeso/yactfr/internal/vm"
	"github.com/frdeso/yactfr/internal/vmmetrics"
)

// feedChunkBytes bounds how much of the packet file is handed to the VM
// per Feed call, so a dump run exercises the same incremental-feed path
// a streaming caller would use instead of buffering the whole file.
const feedChunkBytes = 4096

func main() {
	obslog.Configure("yactfrdump")

	var (
		configPath  = flag.String("config", "", "session config TOML file (see -init-config)")
		metaPath    = flag.String("metadata", "", "metadata JSON file (overrides -config)")
		pktPath     = flag.String("packet", "", "packet binary file (overrides -config)")
		output      = flag.String("output", "", "output format: text | json (overrides -config)")
		metricsAddr = flag.String("metrics-addr", "", "if set, serve Prometheus metrics on this address (overrides -config)")
		initConfig  = flag.String("init-config", "", "write a template session config to this path and exit")
	)
	flag.Parse()

	if *initConfig != "" {
		if err := ctfconfig.WriteTemplate(*initConfig, false); err != nil {
			fatal(err)
		}
		fmt.Printf("wrote template config to %s\n", *initConfig)
		return
	}

	cfg := resolveConfig(*configPath, *metaPath, *pktPath, *output, *metricsAddr)

	if cfg.MetricsAddr != "" {
		vmmetrics.Register()
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			log.Info().Str("addr", cfg.MetricsAddr).Msg("serving metrics")
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				log.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	if err := run(cfg); err != nil {
		fatal(err)
	}
}

func resolveConfig(configPath, metaPath, pktPath, output, metricsAddr string) ctfconfig.SessionConfig {
	var cfg ctfconfig.SessionConfig
	if configPath != "" {
		loaded, err := ctfconfig.LoadSessionConfig(configPath)
		if err != nil {
			fatal(err)
		}
		cfg = loaded
	} else {
		cfg.Output = string(ctfconfig.OutputText)
	}
	if metaPath != "" {
		cfg.MetadataPath = metaPath
	}
	if pktPath != "" {
		cfg.PacketPath = pktPath
	}
	if output != "" {
		cfg.Output = output
	}
	if metricsAddr != "" {
		cfg.MetricsAddr = metricsAddr
	}
	if err := ctfconfig.Validate(cfg); err != nil {
		fatal(err)
	}
	return cfg
}

func run(cfg ctfconfig.SessionConfig) error {
	tt, err := loadTraceType(cfg.MetadataPath)
	if err != nil {
		return fmt.Errorf("load metadata: %w", err)
	}

	tp, slotCount, err := proc.Build(tt)
	if err != nil {
		return fmt.Errorf("build procedure: %w", err)
	}

	f, err := os.Open(cfg.PacketPath)
	if err != nil {
		return fmt.Errorf("open packet file: %w", err)
	}
	defer f.Close()

	v := vm.New(tp, slotCount)
	enc := json.NewEncoder(os.Stdout)
	r := bufio.NewReader(f)
	buf := make([]byte, feedChunkBytes)

	packetStart := time.Now()
	for {
		e, status, err := v.Next()
		if err != nil {
			vmmetrics.RecordError(decodeErrorKind(err))
			return fmt.Errorf("decode: %w", err)
		}
		switch status {
		case vm.StatusOK:
			vmmetrics.RecordElement(e.Kind().String())
			if e.Kind() == elem.KindPacketBegin {
				packetStart = time.Now()
			}
			if e.Kind() == elem.KindPacketEnd {
				vmmetrics.RecordPacket(time.Since(packetStart))
			}
			if err := render(enc, cfg.Output, e); err != nil {
				return err
			}
		case vm.StatusNeedMoreData:
			n, readErr := r.Read(buf)
			if n > 0 {
				v.Feed(buf[:n])
			}
			if readErr != nil {
				v.CloseInput()
			}
		case vm.StatusEnd:
			return nil
		}
	}
}

func loadTraceType(path string) (*metadata.TraceType, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ptt metadata.PseudoTraceType
	if err := json.Unmarshal(data, &ptt); err != nil {
		return nil, fmt.Errorf("parse metadata json: %w", err)
	}
	return metadata.ValidateTraceType(&ptt)
}

func render(enc *json.Encoder, output string, e elem.Elem) error {
	if ctfconfig.OutputFormat(output) == ctfconfig.OutputJSON {
		return enc.Encode(map[string]any{"kind": e.Kind().String(), "elem": e})
	}
	fmt.Printf("%s %+v\n", e.Kind(), e)
	return nil
}

func decodeErrorKind(err error) string {
	var de *vm.DecodeError
	if errors.As(err, &de) {
		return string(de.Kind)
	}
	return "unknown"
}

func fatal(err error) {
	log.Fatal().Err(err).Msg("yactfrdump failed")
}
