package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/Sternrassler/eve-market-scrape/pkg/analyzer"
	"github.com/Sternrassler/eve-market-scrape/pkg/format"
)

func writeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func newTable(w io.Writer, header string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, header)
	return tw
}

func writeSpreads(w io.Writer, spreads []analyzer.Spread) error {
	tw := newTable(w, "ITEM\tBUY AT\tSELL AT\tDIFF\tMARGIN\tUNITS\tPROFIT\t")
	for _, s := range spreads {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			s.Name,
			format.ISK(s.Sell.Price),
			format.ISK(s.Buy.Price),
			format.ISK(s.Diff),
			format.Percent(s.PerDiff),
			format.Units(s.Volume),
			format.Compact(s.Profit),
		)
	}
	return tw.Flush()
}

func writeHauls(w io.Writer, hauls []analyzer.Haul) error {
	tw := newTable(w, "ITEM\tFROM\tBUY AT\tTO\tSELL AT\tUNITS\tINVEST\tPROFIT\tMARGIN\t")
	for _, h := range hauls {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			h.Name,
			h.Sell.Location.Name,
			format.ISK(h.Sell.Price),
			h.Buy.Location.Name,
			format.ISK(h.Buy.Price),
			format.Units(h.Volume),
			format.Compact(h.BuyFor),
			format.Compact(h.Profit),
			format.Percent(h.PerDiff),
		)
	}
	return tw.Flush()
}

func writeMargins(w io.Writer, reports []analyzer.MarginReport) error {
	tw := newTable(w, "ITEM\tHIGH BUY\tBUY UNITS\tLOW SELL\tSELL UNITS\tMARGIN\t%\t")
	for _, r := range reports {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			r.Name,
			format.ISK(r.Buy.High),
			format.Units(r.Buy.Volume),
			format.ISK(r.Sell.Low),
			format.Units(r.Sell.Volume),
			format.ISK(r.Margin.Price),
			format.Percent(r.Margin.Percent),
		)
	}
	return tw.Flush()
}
