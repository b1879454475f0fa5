package psxapi

import (
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/psxlabs/psxgo/internal/models"
)

// dateLayouts covers the date renderings the HTML fallback page has been
// seen to use.
var dateLayouts = []string{"2006-01-02", "Jan 02, 2006", "02 Jan 2006"}

// parseHTMLTable parses the legacy endpoint's rendered page: a
// <table class="historical-data"> whose header row names the columns. Header
// names are case-normalized to lower-case before mapping, so "Date"/"DATE"
// both bind the date column. Returns ok=false when no such table exists.
func parseHTMLTable(body string) ([]models.Bar, models.ParseStats, bool) {
	var stats models.ParseStats

	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil, stats, false
	}

	table := findHistoricalTable(doc)
	if table == nil {
		return nil, stats, false
	}

	headers, rows := tableContents(table)
	if len(headers) == 0 {
		return nil, stats, false
	}

	col := make(map[string]int, len(headers))
	for i, h := range headers {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	dateIdx, ok := col["date"]
	if !ok {
		return nil, stats, false
	}

	bars := make([]models.Bar, 0, len(rows))
	for _, row := range rows {
		if len(row) <= dateIdx {
			stats.Dropped++
			continue
		}
		t, ok := parseAnyDate(row[dateIdx])
		if !ok {
			stats.Dropped++
			continue
		}

		bar := models.Bar{Time: t}
		for name, dst := range map[string]*float64{
			"open": &bar.Open, "high": &bar.High, "low": &bar.Low, "close": &bar.Close,
		} {
			idx, ok := col[name]
			if !ok || idx >= len(row) {
				continue // tolerate missing columns
			}
			v, coerced := models.ParseDecimal(row[idx])
			if coerced {
				stats.Coerced++
			}
			*dst = v
		}
		if idx, ok := col["volume"]; ok && idx < len(row) {
			v, coerced := models.ParseVolume(row[idx])
			if coerced {
				stats.Coerced++
			}
			bar.Volume = v
		}

		bars = append(bars, bar)
	}

	return bars, stats, true
}

func parseAnyDate(cell string) (time.Time, bool) {
	s := strings.TrimSpace(cell)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// findHistoricalTable locates the first <table> carrying the
// "historical-data" class.
func findHistoricalTable(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "table" {
		for _, attr := range n.Attr {
			if attr.Key == "class" && hasClass(attr.Val, "historical-data") {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findHistoricalTable(c); found != nil {
			return found
		}
	}
	return nil
}

func hasClass(classAttr, class string) bool {
	for _, c := range strings.Fields(classAttr) {
		if c == class {
			return true
		}
	}
	return false
}

// tableContents splits a table into its <th> header texts and <td> row texts.
func tableContents(table *html.Node) (headers []string, rows [][]string) {
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			var ths, tds []string
			collectCells(n, &ths, &tds)
			if len(ths) > 0 {
				headers = append(headers, ths...)
			}
			if len(tds) > 0 {
				rows = append(rows, tds)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(table)
	return headers, rows
}

func collectCells(tr *html.Node, ths, tds *[]string) {
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "th":
				*ths = append(*ths, strings.TrimSpace(textContent(n)))
				return
			case "td":
				*tds = append(*tds, strings.TrimSpace(textContent(n)))
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(tr)
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textContent(c))
	}
	return sb.String()
}
