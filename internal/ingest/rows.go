package ingest

import (
	"github.com/sells-group/outreach-cli/internal/model"
)

// RowSet is the parsed form of one uploaded spreadsheet. Exactly two
// implementations exist, one per ingest mode; the pipeline dispatches on the
// concrete type instead of re-checking mode strings.
type RowSet interface {
	Mode() model.IngestMode
}

// ContactRow is one spreadsheet row in contacts mode. Missing fields are
// tolerated; normalization decides what becomes of them.
type ContactRow struct {
	Name       string
	Phone      string
	Sheet      string
	Additional map[string]string
}

// ContactRows maps 1:1 to client upserts.
type ContactRows []ContactRow

func (ContactRows) Mode() model.IngestMode { return model.ModeContacts }

// ClientDataRow is one client's entry for one reporting date.
type ClientDataRow struct {
	ClientName string
	Phone      string
	Sheet      string
	Row        int
	Data       map[string]string
}

// ClientDataRows groups rows by reporting date, then by client identifier.
type ClientDataRows map[string]map[string]ClientDataRow

func (ClientDataRows) Mode() model.IngestMode { return model.ModeClientData }
