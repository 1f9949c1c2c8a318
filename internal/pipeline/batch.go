package pipeline

import (
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// BatchSlots are the outreach scheduling slots, cycled one per successful
// run. The label lands on every record pushed in that run.
var BatchSlots = []string{
	"m friday",
	"a friday",
	"m monday",
	"a monday",
	"m tuesday",
	"a tuesday",
	"m wednesday",
	"a wednesday",
	"m thursday",
	"a thursday",
}

// LoadBatchIndex reads the persisted slot index. Any read or parse problem,
// or an out-of-range value, falls back to slot 0.
func LoadBatchIndex(path string) int {
	if path == "" {
		return 0
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	idx, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || idx < 0 || idx >= len(BatchSlots) {
		return 0
	}
	return idx
}

// SaveBatchIndex persists the slot index for the next run.
func SaveBatchIndex(path string, idx int) error {
	if path == "" {
		return nil
	}
	err := os.WriteFile(path, []byte(strconv.Itoa(idx)), 0o644)
	return eris.Wrap(err, "pipeline: write batch index")
}
