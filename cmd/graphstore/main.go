// Package main provides the graphstore CLI entry point: backup, restore,
// purge, and stats against a partition's data directory, grounded on the
// teacher's cobra root-command wiring (cmd/nornicdb/main.go).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/relaydb/graphstore/pkg/config"
	"github.com/relaydb/graphstore/pkg/graphstore"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "graphstore",
		Short: "graphstore - an embedded graph-shaped key-value store",
	}
	rootCmd.PersistentFlags().String("data-dir", "", "partition data directory (overrides config)")
	rootCmd.PersistentFlags().String("config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().String("partition", "", "partition id (overrides config)")

	rootCmd.AddCommand(versionCmd(), backupCmd(), listBackupsCmd(), restoreCmd(), purgeCmd(), statsCmd(), serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("graphstore v%s (%s)\n", version, commit)
		},
	}
}

// openStore loads config (file-or-defaults, then environment, then
// command-line overrides) and opens the resulting partition.
func openStore(cmd *cobra.Command) (*graphstore.Store, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadFromEnvOrFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if dataDir, _ := cmd.Flags().GetString("data-dir"); dataDir != "" {
		cfg.Partition.DataDir = dataDir
	}
	if partition, _ := cmd.Flags().GetString("partition"); partition != "" {
		cfg.Partition.ID = partition
	}

	return graphstore.Open(context.Background(), cfg)
}

func backupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a full snapshot of the partition to a backup blob",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			reason, _ := cmd.Flags().GetString("reason")
			name, err := store.Backup.Backup(cmd.Context(), reason)
			if err != nil {
				return err
			}
			fmt.Println(name)
			return nil
		},
	}
	cmd.Flags().String("reason", "", "optional suffix recorded in the blob name")
	return cmd
}

func listBackupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backups",
		Short: "List backup blobs for the partition",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			names, err := store.Backup.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Println(n)
			}
			return nil
		},
	}
}

func restoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <blob-name>",
		Short: "Restore the partition from a backup blob",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			result, err := store.Backup.Restore(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("restored %d entries\n", result.Count)
			return nil
		},
	}
}

func purgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete the entire KV namespace (entities, indexes, relationships)",
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
			if !force {
				return fmt.Errorf("purge deletes every entity, index, and relationship in the partition; pass --force to proceed")
			}

			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Entity.PurgeAll(cmd.Context()); err != nil {
				return err
			}
			if _, err := store.Relationship.Purge(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("namespace purged")
			return nil
		},
	}
	cmd.Flags().Bool("force", false, "required to confirm a destructive purge")
	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print Read Cache hit/miss counters for the partition",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			stats := store.Stats()
			fmt.Printf("cache size: %d\nhits: %d\nmisses: %d\n", stats.Size, stats.Hits, stats.Misses)
			return nil
		},
	}
}

// serveCmd is documented but not implemented: the core is an embedded
// library, and spec.md scopes the HTTP/gRPC transport as an external
// collaborator (see pkg/dispatch.doc.go) rather than a bundled server.
func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "(not implemented) run a transport in front of the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("serve: no transport is bundled with this module; wire pkg/dispatch.Router into your own HTTP or gRPC listener")
		},
	}
}
