package cli

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"awsipranges/pkg/awsranges"
)

// saveCSV writes the records to a CSV file, one row per prefix with the
// services joined into a single column.
func saveCSV(ranges *awsranges.Ranges, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.Write([]string{"AWS IP Prefix", "Region", "Network Border Group", "Services"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, rec := range ranges.Prefixes() {
		row := []string{
			rec.Network.String(),
			rec.Region,
			rec.NetworkBorderGroup,
			strings.Join(rec.Services, ", "),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
