// Command torrentctl is a diagnostic CLI over the torrent core (§6.6):
// resolving magnets, parsing .torrent files, listing a torrent's file
// layout, and running a one-off download, grounded on the teacher's
// spf13/cobra-based cmd packages (agent/cmd, tracker/cmd, proxy/cmd).
package main

import (
	"os"

	"github.com/fenwick-labs/corelode/cmd/torrentctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
