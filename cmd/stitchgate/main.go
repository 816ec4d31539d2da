// Command stitchgate runs a graphstitch Gateway as an HTTP server, wired
// to a set of locations described by a YAML config file. It exists only
// to exercise the core packages end to end (SPEC_FULL.md "Configuration")
// — production deployments are expected to build their own Gateway
// around internal/compose and their own LocationExecutors.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"gopkg.in/yaml.v3"

	"github.com/graphstitch/graphstitch"
	"github.com/graphstitch/graphstitch/httpexec"
	"github.com/graphstitch/graphstitch/internal/compose"
	"github.com/graphstitch/graphstitch/internal/supergraph"
	"github.com/graphstitch/graphstitch/plancache"
	"github.com/graphstitch/graphstitch/trace/oteltracer"
)

// Config is the on-disk shape of the YAML file this command reads: one
// entry per location, naming its schema file and the URL to dispatch its
// sub-queries to.
type Config struct {
	Addr      string           `yaml:"addr"`
	CacheSize int              `yaml:"planCacheSize"`
	Locations []LocationConfig `yaml:"locations"`
}

type LocationConfig struct {
	Name       string `yaml:"name"`
	SchemaFile string `yaml:"schemaFile"`
	URL        string `yaml:"url"`
}

func main() {
	configPath := flag.String("config", "stitchgate.yaml", "path to the gateway config file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("stitchgate: %v", err)
	}

	gw, err := buildGateway(cfg)
	if err != nil {
		log.Fatalf("stitchgate: %v", err)
	}

	http.HandleFunc("/graphql", graphqlHandler(gw))

	addr := cfg.Addr
	if addr == "" {
		addr = ":4000"
	}
	log.Printf("stitchgate: listening on %s", addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatalf("stitchgate: %v", err)
	}
}

func loadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func buildGateway(cfg *Config) (*graphstitch.Gateway, error) {
	schemas := make(map[string]*ast.Schema, len(cfg.Locations))
	executables := make(map[string]supergraph.LocationExecutor, len(cfg.Locations))

	for _, loc := range cfg.Locations {
		raw, err := os.ReadFile(loc.SchemaFile)
		if err != nil {
			return nil, err
		}
		schema, gqlErr := gqlparser.LoadSchema(&ast.Source{Name: loc.SchemaFile, Input: string(raw)})
		if gqlErr != nil {
			return nil, gqlErr
		}
		schemas[loc.Name] = schema

		executor := httpexec.New(loc.URL, nil)
		executables[loc.Name] = executor.Execute
	}

	sg, err := compose.Compose(schemas, executables, supergraph.Options{}, compose.Input{})
	if err != nil {
		return nil, err
	}

	gw := graphstitch.New(sg)
	gw.Tracer = oteltracer.New()
	if cfg.CacheSize > 0 {
		cache, err := plancache.NewLRUCache(cfg.CacheSize)
		if err != nil {
			return nil, err
		}
		gw.PlanCache = cache
	}
	return gw, nil
}

type httpRequest struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

func graphqlHandler(gw *graphstitch.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var in httpRequest
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "malformed request body", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		resp := gw.Execute(ctx, graphstitch.Request{
			Query:         in.Query,
			Variables:     in.Variables,
			OperationName: in.OperationName,
			Validate:      true,
		})

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}
