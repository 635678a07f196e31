// Package cli implements the awsipranges command line interface.
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"net/netip"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"awsipranges/pkg/awsranges"
	"awsipranges/pkg/client"
	"awsipranges/pkg/util/cidr"
)

type outputFormat string

const (
	outTable               outputFormat = "table"
	outCIDR                outputFormat = "cidr"
	outNetmask             outputFormat = "netmask"
	outRegions             outputFormat = "regions"
	outNetworkBorderGroups outputFormat = "network-border-groups"
	outServices            outputFormat = "services"
)

// Set implements pflag.Value for validation.
func (o *outputFormat) Set(v string) error {
	switch v {
	case string(outTable), string(outCIDR), string(outNetmask),
		string(outRegions), string(outNetworkBorderGroups), string(outServices):
		*o = outputFormat(v)
		return nil
	default:
		return fmt.Errorf("invalid output format: %s", v)
	}
}
func (o *outputFormat) String() string { return string(*o) }
func (o *outputFormat) Type() string   { return "outputFormat" }

// Version gets overridden via -ldflags at build time.
var Version = "dev"

// ErrNoMatchingPrefixes signals that the displayed index was empty after
// filtering and searching; the CLI exits 1 without a message.
var ErrNoMatchingPrefixes = errors.New("no matching AWS IP prefixes")

// NewRootCmd constructs the root *cobra.Command with isolated state.
func NewRootCmd(out io.Writer) *cobra.Command {
	var format = outTable
	var flagIPv4, flagIPv6, flagVerbose bool
	var flagRegions, flagNetworkBorderGroups, flagServices []string
	var flagCSVFile string

	rootCmd := &cobra.Command{
		Use:           "awsipranges [CIDR ...]",
		Short:         "Quickly query the AWS IP Ranges",
		Long:          "awsipranges retrieves the AWS IP Ranges publication and finds the prefixes containing the provided IP hosts or networks, optionally filtered by family, region, network border group, and service.",
		Version:       Version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(out)

	rootCmd.Flags().BoolVarP(&flagIPv4, "ipv4", "4", false, "include IPv4 prefixes")
	rootCmd.Flags().BoolVarP(&flagIPv6, "ipv6", "6", false, "include IPv6 prefixes")
	rootCmd.Flags().StringSliceVarP(&flagRegions, "region", "r", nil, "include prefixes from these AWS regions")
	rootCmd.Flags().StringSliceVarP(&flagNetworkBorderGroups, "network-border-group", "g", nil, "include prefixes from these network border groups")
	rootCmd.Flags().StringSliceVarP(&flagServices, "service", "s", nil, "include prefixes used by these AWS services")
	rootCmd.Flags().VarP(&format, "output", "o", "output format: table|cidr|netmask|regions|network-border-groups|services")
	rootCmd.Flags().StringVar(&flagCSVFile, "csv", "", "save the results to a CSV file")
	rootCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "log progress to stderr")

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if flagVerbose {
			log.SetOutput(cmd.ErrOrStderr())
		} else {
			log.SetOutput(io.Discard)
		}

		if len(args) == 0 {
			lines, err := readStdinLines()
			if err != nil {
				return err
			}
			args = lines
		}
		queries := parseQueries(cmd.ErrOrStderr(), args)

		ranges, err := client.New().GetRanges()
		if err != nil {
			return err
		}

		filter, err := buildFilter(ranges, flagIPv4, flagIPv6,
			flagRegions, flagNetworkBorderGroups, flagServices)
		if err != nil {
			return err
		}
		if filter != nil {
			ranges = ranges.Filter(filter)
		}

		if len(queries) > 0 {
			results := ranges.Search(queries)
			logSearchResults(len(queries), results)
			ranges = results.Ranges
		}

		w := cmd.OutOrStdout()
		switch format {
		case outTable:
			prefixTable(w, ranges)
		case outCIDR:
			prefixesInCIDRFormat(w, ranges)
		case outNetmask:
			prefixesInNetmaskFormat(w, ranges)
		case outRegions:
			printLines(w, ranges.Regions())
		case outNetworkBorderGroups:
			printLines(w, ranges.NetworkBorderGroups())
		case outServices:
			printLines(w, ranges.Services())
		}

		if flagCSVFile != "" {
			if err := saveCSV(ranges, flagCSVFile); err != nil {
				return err
			}
		}

		if ranges.Len() == 0 {
			return ErrNoMatchingPrefixes
		}
		return nil
	}

	return rootCmd
}

// buildFilter translates the CLI flags into a validated filter, or nil when
// no filter flags were provided.
func buildFilter(ranges *awsranges.Ranges, ipv4, ipv6 bool, regions, networkBorderGroups, services []string) (*awsranges.Filter, error) {
	if !ipv4 && !ipv6 && len(regions) == 0 && len(networkBorderGroups) == 0 && len(services) == 0 {
		return nil, nil
	}

	builder := ranges.FilterBuilder()
	if ipv4 {
		builder.IPv4()
	}
	if ipv6 {
		builder.IPv6()
	}

	if len(regions) > 0 {
		if err := builder.Regions(normalizeLower(regions)...); err != nil {
			return nil, err
		}
	}
	if len(networkBorderGroups) > 0 {
		if err := builder.NetworkBorderGroups(normalizeLower(networkBorderGroups)...); err != nil {
			return nil, err
		}
	}
	if len(services) > 0 {
		if err := builder.Services(normalizeUpper(services)...); err != nil {
			return nil, err
		}
	}

	return builder.Build(), nil
}

// parseQueries parses the positional arguments, skipping invalid values
// with a stderr message so one typo does not abort a bulk query.
func parseQueries(errOut io.Writer, args []string) []netip.Prefix {
	var queries []netip.Prefix
	for _, arg := range args {
		query, err := cidr.ParseQuery(arg)
		if err != nil {
			fmt.Fprintf(errOut, "ERROR: Invalid IP prefix: %q\n", arg)
			continue
		}
		queries = append(queries, query)
	}
	return queries
}

func logSearchResults(queryCount int, results *awsranges.SearchResults) {
	log.Printf("INFO: Searched for %d CIDR(s) in the AWS IP Ranges", queryCount)
	if len(results.Matches) > 0 {
		log.Printf("INFO: Found %d search CIDR(s) contained in %d AWS IP Prefix(es)",
			len(results.Matches), results.Ranges.Len())
	}
	if len(results.NotFound) > 0 {
		log.Printf("WARN: Did not find %d search CIDR(s)", len(results.NotFound))
	}
}

func readStdinLines() ([]string, error) {
	info, err := os.Stdin.Stat()
	if err != nil {
		return nil, err
	}
	if (info.Mode() & os.ModeCharDevice) != 0 {
		return nil, nil
	}
	scanner := bufio.NewScanner(os.Stdin)
	var lines []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

// Execute builds and runs the CLI using os.Stdout.
func Execute() {
	cmd := NewRootCmd(os.Stdout)
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, ErrNoMatchingPrefixes) {
			fmt.Fprintf(os.Stderr, "awsipranges: %v\n", err)
		}
		os.Exit(1)
	}
}
