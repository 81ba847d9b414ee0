// Package parser extracts FIX messages embedded in log lines and renders them
// as indented field trees using the schemas built by package schema.
package parser

import (
	"github.com/fix-logviewer/backend/internal/models"
)

// Standard FIX tags the extractor and renderer look at directly.
const (
	TagBeginString  = 8
	TagBodyLength   = 9
	TagCheckSum     = 10
	TagMsgSeqNum    = 34
	TagMsgType      = 35
	TagSenderCompID = 49
	TagSendingTime  = 52
	TagTargetCompID = 56
	TagApplVerID    = 1128
)

// ProgressCallback is called periodically during indexing to report progress.
type ProgressCallback func(linesProcessed int, bytesProcessed int64, totalBytes int64)

// FieldValue returns the value of the first token carrying tag.
func FieldValue(tokens []models.FieldToken, tag int) (string, bool) {
	for _, tok := range tokens {
		if tok.Tag == tag {
			return tok.Value, true
		}
	}
	return "", false
}
