package main

import (
	"fmt"

	"github.com/atampy25/glacierdb/internal/rpkg"
	"github.com/spf13/cobra"
)

var fullInfo bool

var infoCmd = &cobra.Command{
	Use:   "info <identifier>",
	Short: "Show a resource's type, owning archive and dependencies",
	Long: `Info resolves an identifier without reading any payload bytes and prints
the resource's type tag, the archive that wins the patch layering, and its
dependency list. With --full, dependency hashes are resolved to paths
through the hash list and the size fields are included.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		identifier := args[0]

		if !fullInfo {
			overview, err := rpkg.OverviewInfo(s.archives, identifier)
			if err != nil {
				return err
			}

			fmt.Printf("type:    %s\n", overview.Type)
			fmt.Printf("archive: %s\n", overview.Archive)
			fmt.Printf("references (%d):\n", len(overview.References))
			for _, ref := range overview.References {
				fmt.Printf("  %s flag=0x%02X\n", rpkg.RuntimeIDString(ref.Hash), ref.Flag)
			}
			return nil
		}

		meta, err := s.metadata(identifier)
		if err != nil {
			return err
		}

		fmt.Printf("hash:         %s\n", rpkg.RuntimeIDString(meta.Hash))
		fmt.Printf("type:         %s\n", meta.Type)
		fmt.Printf("data size:    %d\n", meta.DataSize)
		fmt.Printf("memory:       %d\n", meta.MemoryRequirement)
		fmt.Printf("video memory: %d\n", meta.VideoMemoryRequirement)
		fmt.Printf("dependencies (%d):\n", len(meta.Dependencies))
		for _, dep := range meta.Dependencies {
			fmt.Printf("  %s flag=0x%02X\n", dep.Path, dep.Flag)
		}
		return nil
	},
}

func init() {
	infoCmd.Flags().BoolVar(&fullInfo, "full", false, "resolve dependency paths and include size fields")
	rootCmd.AddCommand(infoCmd)
}
