package merkle

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
)

const (
	csvAddressColumn = "WhitelistAddress"
	csvAmountColumn  = "WhitelistAmount"
)

// ParseAndValidateCSV implements the input gate of spec §4.3/§6: parse the
// CSV (header required, columns WhitelistAddress,WhitelistAmount; rows
// trimmed, empty lines skipped), then validate row count, address syntax,
// and amount parsing, and reject duplicate addresses after checksum
// normalization. Returns checksum-normalized, wei-parsed entries ready for
// Build.
func ParseAndValidateCSV(content []byte) ([]Entry, error) {
	rows, err := parseCSVRows(content)
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("whitelist CSV has no rows")
	}
	if len(rows) > MaxEntries {
		return nil, fmt.Errorf("whitelist CSV has %d rows, exceeding the maximum of %d", len(rows), MaxEntries)
	}

	entries := make([]Entry, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))

	for i, row := range rows {
		if err := ValidateAddressSyntax(row.address); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		checksummed := ChecksumAddress(row.address)
		if _, dup := seen[checksummed]; dup {
			return nil, fmt.Errorf("row %d: duplicate address %s", i+1, checksummed)
		}
		seen[checksummed] = struct{}{}

		wei, err := ParseDecimalToWei(row.amount)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}

		entries = append(entries, Entry{
			Address:       checksummed,
			AmountWei:     wei,
			AmountDecimal: FormatWeiDecimal(wei),
		})
	}

	return entries, nil
}

type csvRow struct {
	address string
	amount  string
}

// parseCSVRows reads the header, validates its columns, and returns the
// trimmed, non-empty data rows. It intentionally avoids encoding/csv's
// quoting/escaping machinery: whitelist rows are a plain two-column address
// and decimal amount, never containing commas or quotes themselves.
func parseCSVRows(content []byte) ([]csvRow, error) {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	var header []string
	headerSeen := false
	var rows []csvRow

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if !headerSeen {
			header = splitCSVLine(line)
			if err := validateHeader(header); err != nil {
				return nil, err
			}
			headerSeen = true
			continue
		}

		fields := splitCSVLine(line)
		if len(fields) != len(header) {
			return nil, fmt.Errorf("row %q has %d fields, expected %d", line, len(fields), len(header))
		}

		rows = append(rows, csvRow{
			address: strings.TrimSpace(fields[0]),
			amount:  strings.TrimSpace(fields[1]),
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if !headerSeen {
		return nil, fmt.Errorf("whitelist CSV is missing its header row")
	}

	return rows, nil
}

func validateHeader(header []string) error {
	if len(header) != 2 {
		return fmt.Errorf("whitelist CSV header must have exactly 2 columns, got %d", len(header))
	}
	if strings.TrimSpace(header[0]) != csvAddressColumn || strings.TrimSpace(header[1]) != csvAmountColumn {
		return fmt.Errorf("whitelist CSV header must be %q,%q", csvAddressColumn, csvAmountColumn)
	}
	return nil
}

func splitCSVLine(line string) []string {
	return strings.Split(line, ",")
}
