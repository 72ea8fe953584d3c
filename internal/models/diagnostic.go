package models

import (
	"encoding/json"
	"regexp"
	"strings"
)

// RenderingType tags the shape of one dataset entry in a detector response.
type RenderingType int

const (
	RenderingTypeInsight RenderingType = iota
	RenderingTypeTable
	RenderingTypeMarkdown
	RenderingTypeTimeSeries
	RenderingTypeDataSummary
	RenderingTypeForm
)

// DataTableResponseObject is the row/column payload every rendering variant
// is backed by.
type DataTableResponseObject struct {
	Columns []DataTableColumn `json:"columns"`
	Rows    [][]string        `json:"rows"`
}

// DataTableColumn names one column of a detector data table.
type DataTableColumn struct {
	ColumnName string `json:"columnName"`
}

// RenderingProperties carries the variant tag plus display hints.
type RenderingProperties struct {
	Type        RenderingType `json:"type"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
}

// DiagnosticData is one entry of a detector's structured output.
type DiagnosticData struct {
	Table             DataTableResponseObject `json:"table"`
	RenderingProperty RenderingProperties     `json:"renderingProperties"`
}

// DetectorResponse is the full structured output of one detector run,
// consumed as an opaque input when building the detector copilot's custom
// prompt.
type DetectorResponse struct {
	Metadata map[string]string `json:"metadata"`
	Dataset  []DiagnosticData  `json:"dataset"`
}

// Prompt components, one concrete type per rendering variant. Each is a
// self-describing JSON object folded into the detector copilot's custom
// prompt.

type InsightComponent struct {
	Type     string          `json:"type"`
	Status   string          `json:"status"`
	Title    string          `json:"title"`
	MoreInfo []NameValuePair `json:"moreInfo"`
}

type TableComponent struct {
	Type        string     `json:"type"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Columns     []string   `json:"columns"`
	Rows        [][]string `json:"rows"`
}

type MarkdownComponent struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	MoreInfo string `json:"moreInfo"`
}

type DataSummaryComponent struct {
	Type  string          `json:"type"`
	Title string          `json:"title"`
	Data  []NameValuePair `json:"data"`
}

type NameValuePair struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

var markdownTags = regexp.MustCompile(`</?markdown>`)

// PromptComponent converts one dataset entry into its prompt representation.
// Time-series graphs carry no text the model can use and convert to nil, as
// does any entry with an unrecognized tag.
func (d *DiagnosticData) PromptComponent() any {
	if len(d.Table.Rows) == 0 {
		return nil
	}

	switch d.RenderingProperty.Type {
	case RenderingTypeInsight:
		if c := d.insightComponent(); c != nil {
			return c
		}
		return nil
	case RenderingTypeTable:
		return d.tableComponent()
	case RenderingTypeMarkdown:
		return d.markdownComponent()
	case RenderingTypeDataSummary:
		return d.dataSummaryComponent()
	case RenderingTypeForm, RenderingTypeTimeSeries:
		return nil
	default:
		return nil
	}
}

func (d *DiagnosticData) columnIndex(name string) int {
	for i, col := range d.Table.Columns {
		if strings.EqualFold(col.ColumnName, name) {
			return i
		}
	}
	return -1
}

func (d *DiagnosticData) insightComponent() *InsightComponent {
	row := d.Table.Rows[0]
	if len(row) < 2 {
		return nil
	}

	component := &InsightComponent{
		Type:   "insight",
		Status: row[0],
		Title:  row[1],
	}

	nameIdx := d.columnIndex("Data.Name")
	valueIdx := d.columnIndex("Data.Value")
	if nameIdx >= 0 && valueIdx >= 0 {
		for _, r := range d.Table.Rows {
			if len(r) > valueIdx && r[nameIdx] != "" {
				component.MoreInfo = append(component.MoreInfo, NameValuePair{Name: r[nameIdx], Value: r[valueIdx]})
			}
		}
	}
	return component
}

func (d *DiagnosticData) tableComponent() *TableComponent {
	columns := make([]string, 0, len(d.Table.Columns))
	for _, col := range d.Table.Columns {
		if col.ColumnName != "" {
			columns = append(columns, col.ColumnName)
		}
	}

	title := d.RenderingProperty.Title
	if title == "" {
		title = "Columns - " + strings.Join(columns, ",")
	}

	return &TableComponent{
		Type:        "Table",
		Title:       title,
		Description: d.RenderingProperty.Description,
		Columns:     columns,
		Rows:        d.Table.Rows,
	}
}

func (d *DiagnosticData) markdownComponent() *MarkdownComponent {
	content := markdownTags.ReplaceAllString(d.Table.Rows[0][0], "")
	title := d.RenderingProperty.Title
	if title == "" {
		title = content
	} else {
		title = markdownTags.ReplaceAllString(title, "")
	}

	return &MarkdownComponent{
		Type:     "Additional Information",
		Title:    title,
		MoreInfo: content,
	}
}

func (d *DiagnosticData) dataSummaryComponent() *DataSummaryComponent {
	component := &DataSummaryComponent{
		Type:  "Data Summary",
		Title: d.RenderingProperty.Title,
	}
	for _, row := range d.Table.Rows {
		if len(row) > 1 {
			component.Data = append(component.Data, NameValuePair{Name: row[0], Value: row[1]})
		}
	}
	return component
}

// BuildDetectorPromptJSON flattens a detector response into the JSON document
// injected as the detector copilot's custom prompt: detector metadata plus one
// prompt component per convertible dataset entry.
func BuildDetectorPromptJSON(response *DetectorResponse) (string, error) {
	output := make([]any, 0, len(response.Dataset))
	for i := range response.Dataset {
		if component := response.Dataset[i].PromptComponent(); component != nil {
			output = append(output, component)
		}
	}

	doc := map[string]any{
		"detectorMetadata": response.Metadata,
		"detectorOutput":   output,
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}
