// Package main provides the vectorcore CLI entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/wyrmhollow/vectorcore/pkg/config"
	"github.com/wyrmhollow/vectorcore/pkg/embedding"
	"github.com/wyrmhollow/vectorcore/pkg/httpapi"
	"github.com/wyrmhollow/vectorcore/pkg/index"
	"github.com/wyrmhollow/vectorcore/pkg/index/hnsw"
	"github.com/wyrmhollow/vectorcore/pkg/index/lsh"
	"github.com/wyrmhollow/vectorcore/pkg/orchestrator"
	"github.com/wyrmhollow/vectorcore/pkg/registry"
	"github.com/wyrmhollow/vectorcore/pkg/store"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "vectorcore",
		Short: "vectorcore - document-oriented vector similarity search core",
		Long: `vectorcore indexes document chunk embeddings with a choice of
three algorithms (brute-force, locality-sensitive hashing, and an HNSW
graph) and serves cosine-similarity search over HTTP.`,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("vectorcore v%s (%s)\n", version, commit)
		},
	})

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the vectorcore HTTP search server",
		RunE:  runServe,
	}
	serveCmd.Flags().String("config", "", "Path to an optional vectorcore.yaml override file")
	rootCmd.AddCommand(serveCmd)

	statsCmd := &cobra.Command{
		Use:   "stats [library-id]",
		Short: "Print index statistics for a library",
		Args:  cobra.ExactArgs(1),
		RunE:  runStats,
	}
	statsCmd.Flags().String("config", "", "Path to an optional vectorcore.yaml override file")
	rootCmd.AddCommand(statsCmd)

	rehydrateCmd := &cobra.Command{
		Use:   "rehydrate [library-id]",
		Short: "Replay every stored chunk for a library back into its indexes",
		Args:  cobra.ExactArgs(1),
		RunE:  runRehydrate,
	}
	rehydrateCmd.Flags().String("config", "", "Path to an optional vectorcore.yaml override file")
	rootCmd.AddCommand(rehydrateCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.LoadFromEnv()

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		if err := config.LoadYAMLOverrides(cfg, path); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func buildRegistry(cfg *config.Config) *registry.Registry {
	return registry.New(registry.Config{
		Dimensions:       cfg.Embedding.Dimension,
		DefaultAlgorithm: cfg.Index.Default,
		HNSW: hnsw.Config{
			M:        cfg.Index.HNSWM,
			M0:       cfg.Index.HNSWM0,
			LevelCap: cfg.Index.HNSWLevelCap,
			P:        cfg.Index.HNSWLevelP,
			Seed:     cfg.Index.HNSWSeed,
		},
		LSH: lsh.Config{
			Tables:   cfg.Index.LSHTables,
			HashBits: cfg.Index.LSHHashBits,
			Seed:     cfg.Index.LSHSeed,
		},
	})
}

// rehydrateLibrary replays every stored chunk with a vector for library back
// into reg. The stats and rehydrate commands call it; runServe does not, so
// the server starts with empty indexes.
func rehydrateLibrary(ctx context.Context, st *store.Store, reg *registry.Registry, library uuid.UUID) (int, error) {
	count := 0
	err := st.ForEachIndexed(ctx, library, func(iv store.IndexedVector) error {
		if err := reg.Add(library, iv.ChunkID, iv.Vector, iv.Metadata, false); err != nil {
			return err
		}
		count++
		return nil
	})
	return count, err
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	fmt.Printf("🚀 Starting vectorcore v%s\n", version)
	fmt.Printf("   Data directory:   %s\n", cfg.Database.DataDir)
	fmt.Printf("   HTTP API:         http://%s:%d\n", cfg.Server.Address, cfg.Server.Port)
	fmt.Printf("   Default index:    %s\n", cfg.Index.Default)
	fmt.Printf("   Embedding URL:    %s\n", cfg.Embedding.APIURL)
	fmt.Printf("   Embedding model:  %s (%d dims)\n", cfg.Embedding.Model, cfg.Embedding.Dimension)
	fmt.Println()

	if err := os.MkdirAll(cfg.Database.DataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	fmt.Println("📂 Opening chunk store...")
	chunkStore, err := store.Open(store.Options{DataDir: cfg.Database.DataDir})
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer chunkStore.Close()

	reg := buildRegistry(cfg)

	embedClient := embedding.New(embedding.Config{
		APIURL:  cfg.Embedding.APIURL,
		APIPath: "/api/embeddings",
		Model:   cfg.Embedding.Model,
		Timeout: 30 * time.Second,
	})
	cachedEmbedder, err := embedding.NewCached(embedClient, cfg.Embedding.CacheSize)
	if err != nil {
		return fmt.Errorf("creating embedding cache: %w", err)
	}

	orch := orchestrator.New(reg, cachedEmbedder, chunkStore)
	httpServer := httpapi.New(orch)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port),
		Handler: httpServer.Handler(),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "vectorcore: server error: %v\n", err)
		}
	}()

	fmt.Println()
	fmt.Println("✅ vectorcore is ready!")
	fmt.Println()
	fmt.Println("Endpoints:")
	fmt.Printf("  • Health:  http://%s/health\n", srv.Addr)
	fmt.Printf("  • Search:  POST http://%s/search\n", srv.Addr)
	fmt.Println()
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\n🛑 Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("stopping server: %w", err)
	}

	fmt.Println("✅ Server stopped gracefully")
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	library, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid library id: %w", err)
	}

	chunkStore, err := store.Open(store.Options{DataDir: cfg.Database.DataDir})
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer chunkStore.Close()

	reg := buildRegistry(cfg)

	ctx := context.Background()
	count, err := rehydrateLibrary(ctx, chunkStore, reg, library)
	if err != nil {
		return fmt.Errorf("rehydrating library: %w", err)
	}
	fmt.Printf("Rehydrated %d chunks\n", count)

	for _, algo := range index.Algorithms() {
		stats, ok := reg.StatsFor(library, algo)
		if !ok {
			continue
		}
		fmt.Printf("\n[%s]\n", algo)
		fmt.Printf("  size:       %d\n", stats.Size)
		fmt.Printf("  built:      %v\n", stats.Built)
		fmt.Printf("  complexity: %s\n", stats.Complexity)
		for k, v := range stats.Counters {
			fmt.Printf("  %s: %v\n", k, v)
		}
	}
	return nil
}

func runRehydrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	library, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid library id: %w", err)
	}

	chunkStore, err := store.Open(store.Options{DataDir: cfg.Database.DataDir})
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer chunkStore.Close()

	reg := buildRegistry(cfg)

	fmt.Println("📥 Rehydrating indexes from durable storage...")
	count, err := rehydrateLibrary(context.Background(), chunkStore, reg, library)
	if err != nil {
		return fmt.Errorf("rehydrating library: %w", err)
	}
	fmt.Printf("✅ Replayed %d chunks\n", count)

	if err := reg.Build(library, nil); err != nil {
		return fmt.Errorf("building indexes: %w", err)
	}
	fmt.Println("✅ Indexes built")
	return nil
}
