package scheduler

// TargetPendingBlocks computes the target in-flight block count for a peer
// from its average per-tick download speed, in bytes (§4.7):
// `if avg<20 then avg+2 else avg/5+18`.
func TargetPendingBlocks(avgDownloadSpeed float64) int {
	if avgDownloadSpeed < 20 {
		return int(avgDownloadSpeed) + 2
	}
	return int(avgDownloadSpeed/5) + 18
}
