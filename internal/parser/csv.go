package parser

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/dgallion1/coursevoice/internal/doctree"
)

// CSVParser renders tabular course data (glossaries, formula sheets) as
// "header: value" lines, twenty rows per node.
type CSVParser struct{}

const csvRowsPerNode = 20

func (p *CSVParser) Parse(data []byte, filename string) (*doctree.DocTree, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	tree := &doctree.DocTree{Title: titleFromFilename(filename)}
	if len(records) < 2 {
		return tree, nil
	}

	headers := records[0]
	rows := records[1:]
	for start := 0; start < len(rows); start += csvRowsPerNode {
		end := min(start+csvRowsPerNode, len(rows))
		var text strings.Builder
		for _, row := range rows[start:end] {
			cells := make([]string, 0, len(row))
			for j, cell := range row {
				if j < len(headers) && headers[j] != "" {
					cells = append(cells, headers[j]+": "+cell)
				} else {
					cells = append(cells, cell)
				}
			}
			text.WriteString(strings.Join(cells, ", "))
			text.WriteString("\n")
		}
		tree.Children = append(tree.Children, &doctree.DocNode{Text: text.String()})
	}
	return tree, nil
}
