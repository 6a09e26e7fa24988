package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "torrentctl",
	Short: "torrentctl resolves magnets, parses .torrent files, and downloads torrents",
}

func init() {
	rootCmd.AddCommand(resolveMagnetCmd)
	rootCmd.AddCommand(parseTorrentFileCmd)
	rootCmd.AddCommand(listFilesCmd)
	rootCmd.AddCommand(downloadCmd)
}

// Execute runs the root command. Every subcommand returns a non-nil
// error on any failure (§6.6: "exit code 0 on success, 1 on any error");
// main translates a non-nil return into exit code 1.
func Execute() error {
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "torrentctl:", err)
		return err
	}
	return nil
}
