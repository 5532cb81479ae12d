package raster

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/sys/unix"
)

// headroomFraction leaves 20% of free disk space unclaimed by the estimate.
const headroomFraction = 0.8

// ConfirmFunc asks the operator whether to proceed despite a failed disk
// preflight. It is injected so the pipeline can be driven non-interactively.
type ConfirmFunc func(prompt string) bool

// StdinConfirm prompts on stdout and reads a y/n answer from stdin.
func StdinConfirm(prompt string) bool {
	fmt.Print(prompt + " (y/n): ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(line), "y")
}

// EstimateOutputGB estimates the compressed output size in GB for a
// single-byte-per-pixel raster.
func EstimateOutputGB(width, height int, compressionRatio float64) float64 {
	uncompressed := float64(width) * float64(height)
	return uncompressed * compressionRatio / (1 << 30)
}

// FreeSpaceGB returns the free disk space at dir in GB.
func FreeSpaceGB(dir string) (float64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return 0, eris.Wrapf(err, "raster: statfs %s", dir)
	}
	return float64(st.Bavail) * float64(st.Bsize) / (1 << 30), nil
}

// GuardDiskSpace checks the estimated output size against free space with
// the fixed headroom. When the estimate exceeds the safe threshold the
// operation requires explicit confirmation; declining aborts before any
// output is created.
func GuardDiskSpace(estimatedGB, freeGB float64, confirm ConfirmFunc) error {
	if estimatedGB <= freeGB*headroomFraction {
		return nil
	}
	if confirm == nil {
		confirm = StdinConfirm
	}
	prompt := fmt.Sprintf(
		"estimated output size %.1f GB may exceed available disk space %.1f GB; continue anyway?",
		estimatedGB, freeGB,
	)
	if !confirm(prompt) {
		return eris.New("raster: operation cancelled: insufficient disk space")
	}
	return nil
}
