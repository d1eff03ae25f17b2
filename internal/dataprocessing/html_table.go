package dataprocessing

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const formatHTML = "html-table"

// ParseHTMLTable extracts the first table of an HTML document. The table's
// first row becomes the header and the remaining non-blank rows the data.
func ParseHTMLTable(document string) (*RawTable, error) {
	rows, err := htmlTableRows(document)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, shapeErrorf(formatHTML, "table has no rows")
	}

	table := &RawTable{Header: rows[0]}
	width := len(table.Header)
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		table.Rows = append(table.Rows, padRow(row, width))
	}
	return table, nil
}

// htmlTableRows returns every row of the first <table> as trimmed cell texts
func htmlTableRows(document string) ([][]string, error) {
	doc, err := html.Parse(strings.NewReader(document))
	if err != nil {
		return nil, shapeErrorf(formatHTML, "parse document: %v", err)
	}

	tbl := findFirst(doc, atom.Table)
	if tbl == nil {
		return nil, shapeErrorf(formatHTML, "no table in document")
	}

	var rows [][]string
	walk(tbl, func(n *html.Node) bool {
		if n.DataAtom == atom.Table && n != tbl {
			// nested tables belong to their own cell
			return false
		}
		if n.DataAtom != atom.Tr {
			return true
		}
		var row []string
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode || (c.DataAtom != atom.Td && c.DataAtom != atom.Th) {
				continue
			}
			text, span := nodeText(c), colspan(c)
			for i := 0; i < span; i++ {
				row = append(row, text)
			}
		}
		rows = append(rows, trimRow(row))
		return false
	})
	return rows, nil
}

func findFirst(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, a); found != nil {
			return found
		}
	}
	return nil
}

// walk visits n's descendants depth first; visit returns false to skip children
func walk(n *html.Node, visit func(*html.Node) bool) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && !visit(c) {
			continue
		}
		walk(c, visit)
	}
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			sb.WriteString(n.Data)
		case n.Type == html.ElementNode && n.DataAtom == atom.Br:
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

// maxColspan is the largest colspan browsers honour
const maxColspan = 1000

func colspan(n *html.Node) int {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, "colspan") {
			if v, err := strconv.Atoi(strings.TrimSpace(a.Val)); err == nil && v > 1 {
				return min(v, maxColspan)
			}
		}
	}
	return 1
}

// padRow extends short rows with empty cells
func padRow(row []string, width int) []string {
	if len(row) >= width {
		return row
	}
	out := make([]string, width)
	copy(out, row)
	return out
}
