package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/atampy25/glacierdb/internal/database"
	"github.com/atampy25/glacierdb/internal/rpkg"
	"github.com/atampy25/glacierdb/internal/utils"
	"github.com/spf13/cobra"
)

var withDependencies bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build a SQLite index of every archive's directory",
	Long: `Index walks the directory of every configured archive and writes one row
per resource per archive into a SQLite database, with paths and hints
resolved through the hash list when available. The result is a queryable
view of the whole installation, including patch layering.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		db, err := database.NewDatabase(database.DefaultDatabaseOptions(cfg.Database))
		if err != nil {
			return fmt.Errorf("creating database: %w", err)
		}
		defer db.Close()

		ctx := context.Background()

		hasRows, err := db.HasResources(ctx)
		if err != nil {
			return fmt.Errorf("checking database: %w", err)
		}
		if hasRows {
			return fmt.Errorf("database already contains an index")
		}

		if err := db.CreateSchema(ctx); err != nil {
			return err
		}

		total := 0
		for _, a := range s.archives {
			total += a.EntryCount()
		}

		progress := utils.NewProgress(total, !noProgress)
		defer progress.Finish()

		inserter := database.NewBulkInserter(db, nil)
		var resourceRows int64
		var dependencyRows int64
		seen := 0

		for _, a := range s.archives {
			rows := make([]database.ResourceRow, 0, a.EntryCount())
			var deps []database.DependencyRow

			for i := 0; i < a.EntryCount(); i++ {
				entry, header := a.Entry(i)
				hash := rpkg.RuntimeIDString(entry.Hash)

				row := database.ResourceRow{
					Hash:            hash,
					Archive:         a.Name(),
					Type:            header.Type,
					DataSize:        header.DataSize,
					CompressedSize:  entry.FinalSize(),
					Scrambled:       entry.Scrambled(),
					DependencyCount: len(header.References),
				}
				if s.hashList != nil {
					if e, ok := s.hashList.Lookup(entry.Hash); ok {
						row.Path = e.Path
						row.Hint = e.Hint
					}
				}
				rows = append(rows, row)

				if withDependencies {
					for pos, ref := range header.References {
						deps = append(deps, database.DependencyRow{
							Hash:           hash,
							Archive:        a.Name(),
							Position:       pos,
							DependencyHash: rpkg.RuntimeIDString(ref.Hash),
							Flag:           ref.Flag,
						})
					}
				}

				seen++
				progress.Update(seen, a.Name())
			}

			n, err := inserter.InsertResources(ctx, rows)
			resourceRows += n
			if err != nil {
				return fmt.Errorf("indexing %s: %w", a.Name(), err)
			}

			if withDependencies {
				n, err := inserter.InsertDependencies(ctx, deps)
				dependencyRows += n
				if err != nil {
					return fmt.Errorf("indexing dependencies of %s: %w", a.Name(), err)
				}
			}

			slog.Info("Indexed archive", "archive", a.Name(), "resources", a.EntryCount())
		}

		elapsed := time.Since(start)
		slog.Info("Index complete",
			"resources", utils.Number(resourceRows),
			"dependencies", utils.Number(dependencyRows),
			"duration", utils.Duration(elapsed),
			"rate", utils.Rate(float64(resourceRows)/elapsed.Seconds()))

		return nil
	},
}

func init() {
	indexCmd.Flags().BoolVar(&withDependencies, "dependencies", false, "also index dependency edges")
	rootCmd.AddCommand(indexCmd)
}
