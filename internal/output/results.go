package output

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Aman-CERP/amandocs/internal/search"
)

// Format selects how results are printed.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown format %q (want text or json)", s)
	}
}

// searchResponse is the JSON shape of a result set.
type searchResponse struct {
	Query   string                `json:"query"`
	Mode    search.Mode           `json:"mode"`
	Count   int                   `json:"count"`
	Results []search.RankedResult `json:"results"`
}

// Results prints a result set in format f.
func (w *Writer) Results(query string, mode search.Mode, results []search.RankedResult, f Format) error {
	if f == FormatJSON {
		enc := json.NewEncoder(w.out)
		enc.SetIndent("", "  ")
		return enc.Encode(searchResponse{Query: query, Mode: mode, Count: len(results), Results: results})
	}

	if len(results) == 0 {
		w.Status(w.styles.Dim.Render("·"), fmt.Sprintf("No results for %q", query))
		return nil
	}

	for i, r := range results {
		_, _ = fmt.Fprintf(w.out, "%2d. %s  %s\n", i+1,
			w.styles.Title.Render(r.Title),
			w.styles.Score.Render(fmt.Sprintf("%.3f", r.Score)))

		meta := []string{r.DocumentID}
		if r.Version != "" {
			meta = append(meta, "version "+r.Version)
		}
		if r.Category != "" {
			meta = append(meta, r.Category)
		}
		_, _ = fmt.Fprintf(w.out, "    %s\n", w.styles.Label.Render(strings.Join(meta, " · ")))

		if r.Snippet != "" {
			_, _ = fmt.Fprintf(w.out, "    %s\n", w.highlight(r.Snippet, r.MatchedTerms))
		}
		if i < len(results)-1 {
			w.Newline()
		}
	}

	footer := fmt.Sprintf("%d result(s), %s", len(results), mode)
	if mode == search.ModeKeyword {
		footer += " (keyword-only)"
	}
	_, _ = fmt.Fprintf(w.out, "\n%s\n", w.styles.Dim.Render(footer))
	return nil
}

// highlight styles every case-insensitive occurrence of the matched terms.
func (w *Writer) highlight(text string, terms []string) string {
	if !w.tty || len(terms) == 0 {
		return text
	}
	lower := strings.ToLower(text)
	if len(lower) != len(text) {
		return text
	}
	var sb strings.Builder
	i := 0
	for i < len(text) {
		matched := 0
		for _, t := range terms {
			if t != "" && strings.HasPrefix(lower[i:], t) && len(t) > matched {
				matched = len(t)
			}
		}
		if matched > 0 {
			sb.WriteString(w.styles.Match.Render(text[i : i+matched]))
			i += matched
			continue
		}
		sb.WriteByte(text[i])
		i++
	}
	return sb.String()
}
