package claimStorage

import (
	"io"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
)

// ExportCSV writes every stored record, in insertion order, as CSV with a header row.
func (cs *ClaimStorage) ExportCSV(w io.Writer) (int, error) {
	records := cs.GetRecords()
	if err := gocsv.Marshal(&records, w); err != nil {
		return 0, errors.Wrap(err, "failed to export claim records")
	}
	return len(records), nil
}
