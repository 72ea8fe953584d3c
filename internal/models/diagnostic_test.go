package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func insightData() DiagnosticData {
	return DiagnosticData{
		Table: DataTableResponseObject{
			Columns: []DataTableColumn{
				{ColumnName: "Status"},
				{ColumnName: "Message"},
				{ColumnName: "Data.Name"},
				{ColumnName: "Data.Value"},
			},
			Rows: [][]string{
				{"Critical", "High CPU detected", "Worker", "90%"},
				{"Critical", "High CPU detected", "Threshold", "80%"},
			},
		},
		RenderingProperty: RenderingProperties{Type: RenderingTypeInsight},
	}
}

func TestPromptComponentInsight(t *testing.T) {
	data := insightData()
	component, ok := data.PromptComponent().(*InsightComponent)
	if !ok {
		t.Fatalf("expected insight component, got %T", data.PromptComponent())
	}
	if component.Status != "Critical" || component.Title != "High CPU detected" {
		t.Fatalf("unexpected insight: %+v", component)
	}
	if len(component.MoreInfo) != 2 || component.MoreInfo[0].Name != "Worker" {
		t.Fatalf("moreInfo not extracted: %+v", component.MoreInfo)
	}
}

func TestPromptComponentTable(t *testing.T) {
	data := DiagnosticData{
		Table: DataTableResponseObject{
			Columns: []DataTableColumn{{ColumnName: "TIMESTAMP"}, {ColumnName: "Count"}},
			Rows:    [][]string{{"2024-01-01", "12"}},
		},
		RenderingProperty: RenderingProperties{Type: RenderingTypeTable, Title: "Requests"},
	}
	component, ok := data.PromptComponent().(*TableComponent)
	if !ok {
		t.Fatalf("expected table component")
	}
	if component.Title != "Requests" || len(component.Columns) != 2 || len(component.Rows) != 1 {
		t.Fatalf("unexpected table: %+v", component)
	}
}

func TestPromptComponentMarkdownStripsTags(t *testing.T) {
	data := DiagnosticData{
		Table: DataTableResponseObject{
			Columns: []DataTableColumn{{ColumnName: "Markdown"}},
			Rows:    [][]string{{"<markdown>Check the app settings</markdown>"}},
		},
		RenderingProperty: RenderingProperties{Type: RenderingTypeMarkdown},
	}
	component, ok := data.PromptComponent().(*MarkdownComponent)
	if !ok {
		t.Fatalf("expected markdown component")
	}
	if strings.Contains(component.MoreInfo, "markdown>") {
		t.Fatalf("markdown tags not stripped: %q", component.MoreInfo)
	}
}

func TestPromptComponentSkipsNonTextual(t *testing.T) {
	for _, rt := range []RenderingType{RenderingTypeTimeSeries, RenderingTypeForm} {
		data := DiagnosticData{
			Table:             DataTableResponseObject{Rows: [][]string{{"x"}}},
			RenderingProperty: RenderingProperties{Type: rt},
		}
		if data.PromptComponent() != nil {
			t.Fatalf("rendering type %d should convert to nil", rt)
		}
	}

	empty := DiagnosticData{RenderingProperty: RenderingProperties{Type: RenderingTypeTable}}
	if empty.PromptComponent() != nil {
		t.Fatalf("entry without rows should convert to nil")
	}
}

func TestBuildDetectorPromptJSON(t *testing.T) {
	response := &DetectorResponse{
		Metadata: map[string]string{"id": "appcrashes", "name": "App Crashes"},
		Dataset: []DiagnosticData{
			insightData(),
			{
				Table:             DataTableResponseObject{Rows: [][]string{{"x"}}},
				RenderingProperty: RenderingProperties{Type: RenderingTypeTimeSeries},
			},
		},
	}

	payload, err := BuildDetectorPromptJSON(response)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	var doc struct {
		DetectorMetadata map[string]string `json:"detectorMetadata"`
		DetectorOutput   []json.RawMessage `json:"detectorOutput"`
	}
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if doc.DetectorMetadata["id"] != "appcrashes" {
		t.Fatalf("metadata lost: %+v", doc.DetectorMetadata)
	}
	if len(doc.DetectorOutput) != 1 {
		t.Fatalf("time series entry should have been dropped, got %d components", len(doc.DetectorOutput))
	}
}
