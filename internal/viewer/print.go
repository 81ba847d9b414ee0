package viewer

import (
	"bufio"
	"io"
)

// WriteTrees writes every line that renders, followed by its tree and a
// blank line. Lines without a FIX message are skipped.
func WriteTrees(w io.Writer, lines []string, r LineRenderer) error {
	bw := bufio.NewWriter(w)
	for _, line := range lines {
		tree := r.Render(line)
		if len(tree) == 0 {
			continue
		}
		bw.WriteString(line)
		bw.WriteByte('\n')
		for _, t := range tree {
			bw.WriteString(t)
			bw.WriteByte('\n')
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
