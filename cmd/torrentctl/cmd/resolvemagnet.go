package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fenwick-labs/corelode/core"
	"github.com/fenwick-labs/corelode/torrent/metafetch"
	"github.com/fenwick-labs/corelode/torrent/metainfo"
	"github.com/fenwick-labs/corelode/torrent/tracker"
)

const (
	resolveMagnetTimeout  = 30 * time.Second
	trackerRequestTimeout = 10 * time.Second
)

var errNoPeersFound = errors.New("resolve-magnet: no trackers returned any peers")
var errNoPeerServedMetadata = errors.New("resolve-magnet: none of the discovered peers served metadata")

var resolveMagnetCmd = &cobra.Command{
	Use:   "resolve-magnet [magnet]",
	Short: "Resolve a magnet link's Info via a BEP-9 ut_metadata exchange",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		raw, err := readMagnetArg(args)
		if err != nil {
			return err
		}
		magnet, err := metainfo.ParseMagnet(raw)
		if err != nil {
			return err
		}
		if len(magnet.Trackers) == 0 {
			return fmt.Errorf("resolve-magnet: magnet has no tr= tracker parameters to announce to")
		}

		ctx, cancel := context.WithTimeout(context.Background(), resolveMagnetTimeout)
		defer cancel()

		localPeerID, err := core.RandomPeerID()
		if err != nil {
			return err
		}

		peers := discoverPeers(ctx, magnet, localPeerID)
		if len(peers) == 0 {
			return errNoPeersFound
		}

		for _, addr := range peers {
			info, err := metafetch.FetchInfo(ctx, addr.String(), magnet.InfoHash, localPeerID)
			if err != nil {
				continue
			}
			if hash, hashErr := info.InfoHash(); hashErr == nil && hash != magnet.InfoHash {
				continue
			}
			printInfo(info)
			return nil
		}
		return errNoPeerServedMetadata
	},
}

func readMagnetArg(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	data, err := io.ReadAll(bufio.NewReader(os.Stdin))
	if err != nil {
		return "", fmt.Errorf("resolve-magnet: read magnet from stdin: %w", err)
	}
	return string(data), nil
}

func discoverPeers(ctx context.Context, magnet *metainfo.Magnet, localPeerID core.PeerID) []net.Addr {
	var peers []net.Addr
	for _, url := range magnet.Trackers {
		client, err := tracker.NewClient(url, trackerRequestTimeout)
		if err != nil {
			continue
		}
		resp, err := client.Announce(ctx, tracker.AnnounceRequest{
			InfoHash: magnet.InfoHash,
			PeerID:   localPeerID,
			Port:     0,
			NumWant:  50,
		})
		if err != nil {
			continue
		}
		peers = append(peers, resp.Peers...)
	}
	return peers
}
