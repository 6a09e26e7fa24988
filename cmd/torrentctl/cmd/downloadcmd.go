package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/spf13/cobra"
	"github.com/uber-go/tally"

	"github.com/fenwick-labs/corelode/core"
	"github.com/fenwick-labs/corelode/internal/bandwidth"
	"github.com/fenwick-labs/corelode/internal/log"
	"github.com/fenwick-labs/corelode/torrent/conn"
	"github.com/fenwick-labs/corelode/torrent/download"
	"github.com/fenwick-labs/corelode/torrent/metafetch"
	"github.com/fenwick-labs/corelode/torrent/metainfo"
	"github.com/fenwick-labs/corelode/torrent/peerstore"
	"github.com/fenwick-labs/corelode/torrent/scheduler"
	"github.com/fenwick-labs/corelode/torrent/storage"
	"github.com/fenwick-labs/corelode/torrent/tracker"
	"github.com/fenwick-labs/corelode/torrent/wire"
)

var (
	downloadMagnet  string
	downloadTorrent string
	downloadOutput  string
	downloadFiles   string
)

// downloadCmd runs a download until the process receives SIGINT or
// SIGTERM, printing a progress line on every tick; it does not exit when
// the download completes (§6.6:
// "download [--magnet <m>|--torrent <path>] [--output <dir>]
// [--files a,b,c] — downloads and prints periodic progress snapshots").
var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download a torrent by magnet or .torrent file, printing progress",
	RunE: func(c *cobra.Command, args []string) error {
		if (downloadMagnet == "") == (downloadTorrent == "") {
			return fmt.Errorf("download: exactly one of --magnet or --torrent is required")
		}
		if downloadOutput == "" {
			downloadOutput = "."
		}

		ctx := context.Background()

		localPeerID, err := core.RandomPeerID()
		if err != nil {
			return err
		}

		info, trackerURLs, err := resolveDownloadTarget(ctx, localPeerID)
		if err != nil {
			return err
		}

		infoHash, err := info.InfoHash()
		if err != nil {
			return err
		}

		numFiles := len(info.Files)
		torrent := core.NewTorrent(infoHash, info.Name, info.NumPieces(), info.TotalLength(),
			info.PieceLength, numFiles, downloadOutput, core.Medium)
		if downloadFiles != "" {
			if err := applyFileSelection(torrent, info, downloadFiles); err != nil {
				return err
			}
		}

		layout, err := storage.NewLayout(info, downloadOutput)
		if err != nil {
			return err
		}

		hashes := make([]core.Digest, len(info.Pieces))
		for i, h := range info.Pieces {
			hashes[i] = core.Digest(h)
		}

		logger, err := log.New(log.Config{}, map[string]interface{}{"info_hash": infoHash.String()})
		if err != nil {
			return err
		}
		sugar := logger.Sugar()

		store := storage.New(storage.Config{}, layout, torrent, hashes, downloadOutput+".parts", sugar)
		defer store.Close()

		peerStore := peerstore.New(nil, 1000)

		handshaker := wire.NewHandshaker(wire.Config{}, localPeerID)

		bw, err := bandwidth.NewLimiter(bandwidth.Config{})
		if err != nil {
			return err
		}

		table := scheduler.NewPieceTable(torrent.Pieces)

		var trackerSpecs []download.TrackerSpec
		trackerConfig := tracker.Config{}
		for _, url := range trackerURLs {
			client, err := tracker.NewClient(url, 3*time.Second)
			if err != nil {
				continue
			}
			trackerSpecs = append(trackerSpecs, download.TrackerSpec{URL: url, Client: client})
		}

		coord := download.New(
			download.Config{},
			clock.New(),
			torrent,
			infoHash,
			localPeerID,
			0,
			table,
			hashes,
			scheduler.RarestFirst{},
			store,
			peerStore,
			handshaker,
			conn.Config{},
			bw,
			trackerSpecs,
			trackerConfig,
			printProgress,
			tally.NoopScope,
			sugar,
		)
		defer coord.Stop()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		return nil
	},
}

func init() {
	downloadCmd.Flags().StringVar(&downloadMagnet, "magnet", "", "magnet link to download")
	downloadCmd.Flags().StringVar(&downloadTorrent, "torrent", "", "path to a .torrent file to download")
	downloadCmd.Flags().StringVar(&downloadOutput, "output", "", "destination directory (default: current directory)")
	downloadCmd.Flags().StringVar(&downloadFiles, "files", "", "comma-separated list of file paths to enable (default: all)")
}

// resolveDownloadTarget returns the Info to download and the tracker URLs
// to announce to, from either --torrent or --magnet.
func resolveDownloadTarget(ctx context.Context, localPeerID core.PeerID) (metainfo.Info, []string, error) {
	if downloadTorrent != "" {
		data, err := os.ReadFile(downloadTorrent)
		if err != nil {
			return metainfo.Info{}, nil, fmt.Errorf("read %s: %w", downloadTorrent, err)
		}
		tf, err := metainfo.ParseTorrentFile(data)
		if err != nil {
			return metainfo.Info{}, nil, err
		}
		urls := tf.AnnounceList
		if tf.Announce != "" {
			urls = append([]string{tf.Announce}, urls...)
		}
		return tf.Info, urls, nil
	}

	magnet, err := metainfo.ParseMagnet(downloadMagnet)
	if err != nil {
		return metainfo.Info{}, nil, err
	}
	if len(magnet.Trackers) == 0 {
		return metainfo.Info{}, nil, fmt.Errorf("download: magnet has no tr= tracker parameters to announce to")
	}

	fetchCtx, cancel := context.WithTimeout(ctx, resolveMagnetTimeout)
	defer cancel()

	peers := discoverPeers(fetchCtx, magnet, localPeerID)
	if len(peers) == 0 {
		return metainfo.Info{}, nil, errNoPeersFound
	}
	for _, addr := range peers {
		info, err := metafetch.FetchInfo(fetchCtx, addr.String(), magnet.InfoHash, localPeerID)
		if err != nil {
			continue
		}
		return info, magnet.Trackers, nil
	}
	return metainfo.Info{}, nil, errNoPeerServedMetadata
}

// applyFileSelection disables every file not named in the comma-separated
// files list, matching names against each file's sanitized relative path.
func applyFileSelection(t *core.Torrent, info metainfo.Info, files string) error {
	wanted := make(map[string]bool)
	for _, f := range strings.Split(files, ",") {
		wanted[strings.TrimSpace(f)] = true
	}
	for idx, f := range info.Files {
		rel, err := metainfo.SanitizedFilePath(".", f.Path)
		if err != nil {
			return err
		}
		if !wanted[rel] {
			if err := t.EnabledFiles.Remove(idx); err != nil {
				return err
			}
		}
	}
	return nil
}

func printProgress(s download.ProgressSnapshot) {
	fmt.Printf("[%s] pieces %d/%d  down %d  up %d  left %d  peers %d\n",
		time.Now().Format(time.Kitchen), s.PiecesComplete, s.PiecesTotal,
		s.Downloaded, s.Uploaded, s.Left, s.ActivePeers)
}
