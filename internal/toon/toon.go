// Package toon implements TOON (Token-Oriented Object Notation) encoding.
package toon

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/phobologic/taskslabel/internal/model"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// Encode converts a Report into TOON format.
func Encode(r *model.Report) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("name: %s", encodeValue(r.Name)))
	parts = append(parts, fmt.Sprintf("root: %s", encodeValue(r.Root)))

	var labelRows [][]string
	for i := range r.Labels {
		l := &r.Labels[i]
		labelRows = append(labelRows, []string{
			l.Label,
			l.File,
			strconv.Itoa(l.Line),
			strconv.Itoa(l.References),
			fmt.Sprintf("%.4f", l.Rank),
		})
	}
	parts = append(parts, formatTabular("labels", []string{"label", "file", "line", "refs", "rank"}, labelRows))

	var refRows [][]string
	for i := range r.References {
		ref := &r.References[i]
		refRows = append(refRows, []string{ref.Label, ref.File, strconv.Itoa(ref.Line)})
	}
	parts = append(parts, formatTabular("references", []string{"label", "file", "line"}, refRows))

	var depRows [][]string
	for i := range r.Dependencies {
		d := &r.Dependencies[i]
		depRows = append(depRows, []string{
			d.Source,
			strings.Join(d.Targets, " "),
			d.Doc,
		})
	}
	parts = append(parts, formatTabular("dependencies", []string{"task", "dependsOn", "file"}, depRows))

	if len(r.Cycles) > 0 {
		var cycleRows [][]string
		for _, c := range r.Cycles {
			cycleRows = append(cycleRows, []string{strings.Join(c, " ")})
		}
		parts = append(parts, formatTabular("cycles", []string{"labels"}, cycleRows))
	}

	return strings.Join(parts, "\n")
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
