package httpx

import (
	"net/url"
	"strings"
	"testing"
)

func TestParsePage(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantPage   int64
		wantSize   int64
		wantOffset int64
		wantErr    bool
	}{
		{name: "defaults", query: "", wantPage: 1, wantSize: 20, wantOffset: 0},
		{name: "explicit", query: "page=3&pageSize=10", wantPage: 3, wantSize: 10, wantOffset: 20},
		{name: "clamped", query: "pageSize=1000", wantPage: 1, wantSize: 100, wantOffset: 0},
		{name: "zero page", query: "page=0", wantErr: true},
		{name: "garbage size", query: "pageSize=abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, _ := url.ParseQuery(tt.query)
			page, err := ParsePage(values, 20, 100)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePage error: %v", err)
			}
			if page.Page != tt.wantPage || page.PageSize != tt.wantSize || page.Offset() != tt.wantOffset {
				t.Fatalf("unexpected page %+v offset %d", page, page.Offset())
			}
		})
	}
}

func TestDecodeJSONRejectsTrailingData(t *testing.T) {
	var out map[string]interface{}
	if err := DecodeJSON(strings.NewReader(`{"a":1}{"b":2}`), &out); err == nil {
		t.Fatalf("expected error for trailing object")
	}
}

func TestDecodeOptionalJSONEmptyBody(t *testing.T) {
	out := struct {
		Note string `json:"note"`
	}{Note: "keep"}
	if err := DecodeOptionalJSON(strings.NewReader(""), &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Note != "keep" {
		t.Fatalf("expected value untouched, got %q", out.Note)
	}
}
