package fetcher

import (
	"fmt"
	"strings"

	"github.com/sells-group/outreach-cli/internal/ingest"
)

// Contact-mode layout: name, phone, then free-form extra columns captured by
// header name.
const (
	contactNameCol  = 0
	contactPhoneCol = 1
)

// Client-data layout: date, client id, client name, phone, then data columns.
const (
	clientDateCol  = 0
	clientIDCol    = 1
	clientNameCol  = 2
	clientPhoneCol = 3
)

// ParseContacts reads a contacts-mode spreadsheet. The first row is treated
// as a header naming the extra columns. Blank rows are dropped; rows with a
// missing name or phone are kept and left to normalization.
func ParseContacts(path string, opts XLSXOptions) (ingest.ContactRows, error) {
	if opts.SkipRows == 0 {
		opts.SkipRows = 1
	}
	sheetName, header, rows, err := readSheet(path, opts)
	if err != nil {
		return nil, err
	}

	out := make(ingest.ContactRows, 0, len(rows))
	for _, row := range rows {
		if blankRow(row) {
			continue
		}
		contact := ingest.ContactRow{
			Name:  cell(row, contactNameCol),
			Phone: cell(row, contactPhoneCol),
			Sheet: sheetName,
		}
		for i := contactPhoneCol + 1; i < len(row); i++ {
			key := headerName(header, i)
			if v := strings.TrimSpace(row[i]); v != "" {
				if contact.Additional == nil {
					contact.Additional = make(map[string]string)
				}
				contact.Additional[key] = v
			}
		}
		out = append(out, contact)
	}
	return out, nil
}

// ParseClientData reads a client-data-mode spreadsheet into rows grouped by
// reporting date, then client id. A later row for the same (date, client)
// pair replaces the earlier one.
func ParseClientData(path string, opts XLSXOptions) (ingest.ClientDataRows, error) {
	if opts.SkipRows == 0 {
		opts.SkipRows = 1
	}
	sheetName, header, rows, err := readSheet(path, opts)
	if err != nil {
		return nil, err
	}

	out := make(ingest.ClientDataRows)
	for rowIdx, row := range rows {
		if blankRow(row) {
			continue
		}
		date := cell(row, clientDateCol)
		clientID := cell(row, clientIDCol)
		if date == "" || clientID == "" {
			continue
		}

		entry := ingest.ClientDataRow{
			ClientName: cell(row, clientNameCol),
			Phone:      cell(row, clientPhoneCol),
			Sheet:      sheetName,
			Row:        rowIdx + opts.SkipRows + 1, // 1-based spreadsheet row
		}
		for i := clientPhoneCol + 1; i < len(row); i++ {
			key := headerName(header, i)
			if v := strings.TrimSpace(row[i]); v != "" {
				if entry.Data == nil {
					entry.Data = make(map[string]string)
				}
				entry.Data[key] = v
			}
		}

		if out[date] == nil {
			out[date] = make(map[string]ingest.ClientDataRow)
		}
		out[date][clientID] = entry
	}
	return out, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func headerName(header []string, i int) string {
	if i < len(header) {
		if h := strings.TrimSpace(header[i]); h != "" {
			return h
		}
	}
	return fmt.Sprintf("col_%d", i+1)
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
