package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/starford/smartscribe/internal/apperr"
)

// Columns of the tabular format, one row per option with the list metadata
// repeated on every row. Multiple names are joined with NameSeparator.
var csvHeader = []string{"list_id", "names", "group", "option_text", "option_order", "is_default"}

// NameSeparator joins list names in the names column.
const NameSeparator = "|"

// ExportCSV writes the whole catalog in tabular form, lists by id and
// options by order.
func (c *Catalog) ExportCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("catalog: export: %w", err)
	}
	for _, l := range c.Lists() {
		names := strings.Join(l.Aliases, NameSeparator)
		for _, o := range l.Options {
			row := []string{l.ID, names, l.Group, o.Text, strconv.Itoa(o.Order), strconv.FormatBool(o.Default)}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("catalog: export: %w", err)
			}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("catalog: export: %w", err)
	}
	return nil
}

// ImportCSV parses a tabular catalog and replaces the whole index with it.
// Nothing changes unless every row and every list is valid.
func (c *Catalog) ImportCSV(r io.Reader) (int, error) {
	lists, err := ParseCSV(r)
	if err != nil {
		return 0, err
	}
	if err := c.Replace(lists); err != nil {
		return 0, err
	}
	return len(lists), nil
}

// ParseCSV decodes the tabular format into lists, in first-seen order.
// Columns are matched by header name, so their order may vary.
func ParseCSV(r io.Reader) ([]List, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty csv", apperr.ErrInvalidCatalog)
		}
		return nil, fmt.Errorf("catalog: read csv header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, h := range []string{"list_id", "names", "option_text"} {
		if _, ok := col[h]; !ok {
			return nil, fmt.Errorf("%w: csv missing column %q", apperr.ErrInvalidCatalog, h)
		}
	}
	field := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var order []string
	byID := make(map[string]*List)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("catalog: read csv line %d: %w", line, err)
		}
		id := field(rec, "list_id")
		if id == "" {
			return nil, fmt.Errorf("%w: csv line %d: list_id is empty", apperr.ErrInvalidCatalog, line)
		}
		l, ok := byID[id]
		if !ok {
			l = &List{ID: id}
			byID[id] = l
			order = append(order, id)
		}
		for _, n := range strings.Split(field(rec, "names"), NameSeparator) {
			if n = strings.TrimSpace(n); n != "" && !containsFold(l.Aliases, n) {
				l.Aliases = append(l.Aliases, n)
			}
		}
		if l.Group == "" {
			l.Group = field(rec, "group")
		}

		opt := ListOption{Text: field(rec, "option_text")}
		if s := field(rec, "option_order"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil {
				return nil, fmt.Errorf("%w: csv line %d: option_order %q", apperr.ErrInvalidCatalog, line, s)
			}
			opt.Order = n
		}
		opt.Default = parseFlag(field(rec, "is_default"))
		l.Options = append(l.Options, opt)
	}

	out := make([]List, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out, nil
}

func parseFlag(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "t", "yes", "y", "x":
		return true
	}
	return false
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
