package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	"awsipranges/pkg/awsranges"
	"awsipranges/pkg/util/cidr"
)

// prefixTable renders the records as a table with a summary footer.
func prefixTable(w io.Writer, ranges *awsranges.Ranges) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"IP Prefix", "Region", "Network Border Group", "Services"})
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
	})
	table.SetAutoWrapText(false)

	for _, rec := range ranges.Prefixes() {
		table.Append([]string{
			rec.Network.String(),
			rec.Region,
			rec.NetworkBorderGroup,
			strings.Join(rec.Services, ", "),
		})
	}
	table.Render()

	fmt.Fprintf(w, "%6d AWS IP Prefixes\n", ranges.Len())
	fmt.Fprintf(w, "%6d AWS Regions\n", len(ranges.Regions()))
}

// prefixesInCIDRFormat prints one RFC 4632 CIDR block per line.
func prefixesInCIDRFormat(w io.Writer, ranges *awsranges.Ranges) {
	for _, rec := range ranges.Prefixes() {
		fmt.Fprintln(w, rec.Network)
	}
}

// prefixesInNetmaskFormat prints one "network netmask" pair per line.
func prefixesInNetmaskFormat(w io.Writer, ranges *awsranges.Ranges) {
	for _, rec := range ranges.Prefixes() {
		fmt.Fprintln(w, cidr.Netmask(rec.Network))
	}
}

func printLines(w io.Writer, lines []string) {
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}
