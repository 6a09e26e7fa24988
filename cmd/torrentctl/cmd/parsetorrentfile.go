package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fenwick-labs/corelode/torrent/metainfo"
)

var parseTorrentFileCmd = &cobra.Command{
	Use:   "parse-torrent-file <path>",
	Short: "Parse a .torrent file and print its Info",
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
		printInfo(tf.Info)
		if tf.Announce != "" || len(tf.AnnounceList) > 0 {
			fmt.Println("Trackers:")
			for _, a := range tf.AnnounceList {
				fmt.Printf("  %s\n", a)
			}
		}
		return nil
	},
}

func printInfo(info metainfo.Info) {
	hash, err := info.InfoHash()
	if err != nil {
		fmt.Printf("Info hash: <error: %s>\n", err)
	} else {
		fmt.Printf("Info hash: %s\n", hash)
	}
	fmt.Printf("Name: %s\n", info.Name)
	fmt.Printf("Piece length: %d\n", info.PieceLength)
	fmt.Printf("Pieces: %d\n", info.NumPieces())
	fmt.Printf("Total length: %d\n", info.TotalLength())
	fmt.Printf("Single file: %t\n", info.SingleFile)
}
