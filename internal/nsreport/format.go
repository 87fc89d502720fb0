package nsreport

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

const (
	nameWidth  = 30
	valueWidth = 40
	ruleWidth  = 80
)

// truncate shortens s to max runes, ending in "..." when cut.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

func displayName(name string) string {
	if name == "" {
		return "@"
	}
	return name
}

// Write prints the inconsistency summary followed by the full table.
func (r *Report) Write(w io.Writer) error {
	if len(r.Rows) == 0 {
		_, err := fmt.Fprintf(w, "No records found for %s\n", r.Zone)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rule := strings.Repeat("=", ruleWidth)
	if bad := r.Inconsistent(); len(bad) > 0 {
		fmt.Fprintf(tw, "Warning: INCONSISTENCIES DETECTED (%d records)\n%s\n", len(bad), rule)
		fmt.Fprintln(tw, "NAME\tTYPE\tSTATUS")
		for _, row := range bad {
			fmt.Fprintf(tw, "%s\t%s\tInconsistent\n", truncate(displayName(row.Name), valueWidth), row.Type)
		}
		fmt.Fprintln(tw)
	} else {
		fmt.Fprintf(tw, "All records consistent across nameservers\n\n")
	}

	fmt.Fprintf(tw, "FULL REPORT\n%s\n", rule)
	header := append([]string{"NAME", "TYPE", "TTL"}, r.Servers...)
	fmt.Fprintln(tw, strings.Join(append(header, "OK"), "\t"))
	for _, row := range r.Rows {
		cols := []string{truncate(displayName(row.Name), nameWidth), row.Type, fmt.Sprint(row.TTL)}
		for _, a := range row.Answers {
			cols = append(cols, truncate(a.String(), valueWidth))
		}
		ok := "Y"
		if !row.Consistent {
			ok = "N"
		}
		fmt.Fprintln(tw, strings.Join(append(cols, ok), "\t"))
	}
	return tw.Flush()
}
