package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseVersionLabel(t *testing.T) {
	tests := []struct {
		name          string
		filename      string
		content       string
		wantText      string
		wantRevision  int
		wantHeuristic bool
		wantOK        bool
	}{
		{name: "ordinal keyword", content: "SI 3RD UPDATE attached", wantText: "3RD UPDATE", wantRevision: 3, wantOK: true},
		{name: "keyword number", filename: "checklist_draft 2.xlsx", wantText: "DRAFT 2", wantRevision: 2, wantOK: true},
		{name: "ordinal beats generic v", content: "2ND AMENDMENT V9", wantText: "2ND AMENDMENT", wantRevision: 2, wantOK: true},
		{name: "final", filename: "BL_FINAL.pdf", wantText: "FINAL", wantOK: true},
		{name: "generic v2", filename: "si_v2.pdf", wantText: "V2", wantRevision: 2, wantOK: true},
		{name: "bare amended is heuristic", content: "AMENDED booking confirmation", wantText: "AMENDED", wantHeuristic: true, wantOK: true},
		{name: "filename beats content", filename: "draft 1.pdf", content: "FINAL", wantText: "DRAFT 1", wantRevision: 1, wantOK: true},
		{name: "nothing", content: "booking confirmation", wantOK: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			label, ok := ParseVersionLabel(tc.filename, tc.content)
			assert.Equal(t, tc.wantOK, ok)
			if !tc.wantOK {
				return
			}
			assert.Equal(t, tc.wantText, label.Text)
			assert.Equal(t, tc.wantRevision, label.Revision)
			assert.Equal(t, tc.wantHeuristic, label.Heuristic)
		})
	}
}

func TestBumpedLabel(t *testing.T) {
	assert.Equal(t, "AMENDED 3", BumpedLabel("AMENDED", 3))
}
