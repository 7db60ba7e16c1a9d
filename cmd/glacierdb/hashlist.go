package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/atampy25/glacierdb/internal/hashlist"
	"github.com/atampy25/glacierdb/internal/rpkg"
	"github.com/spf13/cobra"
)

var hashlistCmd = &cobra.Command{
	Use:   "hashlist [identifier]...",
	Short: "Inspect the configured hash list",
	Long: `Hashlist loads the configured hash list and reports its entry count.
Each identifier given is resolved against the list and printed with its
known type, path and hint; hashes the list does not know fall back to
their 16-hex-digit rendering.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.HashList == "" {
			return fmt.Errorf("no hash list configured: set hash_list or --hash-list")
		}

		blob, err := os.ReadFile(cfg.HashList)
		if err != nil {
			return fmt.Errorf("reading hash list: %w", err)
		}
		hl, err := hashlist.Load(blob)
		if err != nil {
			return fmt.Errorf("loading hash list: %w", err)
		}
		slog.Info("Hash list loaded", "entry_count", hl.Len())

		for _, identifier := range args {
			line, err := describeIdentifier(hl, identifier)
			if err != nil {
				return err
			}
			fmt.Println(line)
		}

		return nil
	},
}

// describeIdentifier renders one hash-list lookup as a display line.
func describeIdentifier(hl *hashlist.HashList, identifier string) (string, error) {
	id, err := rpkg.NormalizeIdentifier(identifier)
	if err != nil {
		return "", err
	}

	e, ok := hl.Lookup(id)
	if !ok {
		return fmt.Sprintf("%s  unknown", rpkg.RuntimeIDString(id)), nil
	}

	line := fmt.Sprintf("%s  %s  %s", rpkg.RuntimeIDString(id), e.ResourceType, hl.DisplayPath(id))
	if e.Hint != "" {
		line += "  (" + e.Hint + ")"
	}
	return line, nil
}

func init() {
	rootCmd.AddCommand(hashlistCmd)
}
