package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/sakif/sweet-shop/internal/model"
)

// print writes v as indented JSON with --json, otherwise calls table.
func (o *options) print(v any, table func(w io.Writer)) error {
	if o.asJSON {
		enc := json.NewEncoder(o.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	tw := tabwriter.NewWriter(o.out, 0, 4, 2, ' ', 0)
	table(tw)
	return tw.Flush()
}

// formatPrice renders minor units as "12.30".
func formatPrice(minor int) string {
	sign := ""
	if minor < 0 {
		sign, minor = "-", -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

func printItems(w io.Writer, items []model.Item) {
	if len(items) == 0 {
		fmt.Fprintln(w, "no items")
		return
	}
	fmt.Fprintln(w, "ID\tTITLE\tPRICE\tWEIGHT\tFAV")
	for _, it := range items {
		fav := ""
		if it.IsFavorite {
			fav = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%dg\t%s\n", it.ID, it.Title, formatPrice(it.Price), it.Weight, fav)
	}
}

func printCart(w io.Writer, cart []model.Item) {
	if len(cart) == 0 {
		fmt.Fprintln(w, "cart is empty")
		return
	}
	total := 0
	fmt.Fprintln(w, "ID\tTITLE\tQTY\tLINE TOTAL")
	for _, it := range cart {
		total += it.LineTotal()
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", it.ID, it.Title, it.Quantity, formatPrice(it.LineTotal()))
	}
	fmt.Fprintf(w, "\t\tTOTAL\t%s\n", formatPrice(total))
}

func printOrders(w io.Writer, orders []model.Order) {
	if len(orders) == 0 {
		fmt.Fprintln(w, "no orders yet")
		return
	}
	fmt.Fprintln(w, "ORDER\tPLACED\tLINES\tTOTAL")
	for _, o := range orders {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", o.ID, o.PlacedAt.Local().Format(time.DateTime), len(o.Items), formatPrice(o.Total()))
	}
}
