package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fenwick-labs/corelode/torrent/metainfo"
)

// listFilesCmd supplements §6.6 per SPEC_FULL.md §4.20, grounded on
// torrent/src/file.rs: prints the sanitized per-file layout of a
// .torrent's Info without downloading anything.
var listFilesCmd = &cobra.Command{
	Use:   "list-files <path>",
	Short: "Print the sanitized per-file layout of a .torrent file",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		tf, err := metainfo.ParseTorrentFile(data)
		if err != nil {
			return err
		}
		for _, f := range tf.Info.Files {
			rel, err := metainfo.SanitizedFilePath(".", f.Path)
			if err != nil {
				return err
			}
			fmt.Printf("%12d  %s\n", f.Length, rel)
		}
		return nil
	},
}
