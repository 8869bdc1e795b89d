package scanner

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

func TestParseBool(t *testing.T) {
	trueValues := []string{"TRUE", "true", "1", "yes", "Yes", "t", " T "}
	for _, v := range trueValues {
		if !ParseBool(v) {
			t.Errorf("ParseBool(%q) = false, want true", v)
		}
	}
	falseValues := []string{"", "false", "0", "no", "F", "y", "truthy"}
	for _, v := range falseValues {
		if ParseBool(v) {
			t.Errorf("ParseBool(%q) = true, want false", v)
		}
	}
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2022, 11, 26, 0, 18, 53, 0, time.UTC)

	tests := []struct {
		raw    string
		ok     bool
		expect time.Time
	}{
		{"2022-11-26 00:18:53", true, want},
		{"2022-11-26 00:18:53 UTC", true, want},
		{"  2022-11-26 00:18:53 UTC  ", true, want},
		{"", false, time.Time{}},
		{"2022-11-26", false, time.Time{}},
		{"26/11/2022 00:18:53", false, time.Time{}},
	}
	for _, tt := range tests {
		got, ok := ParseTimestamp(tt.raw)
		if ok != tt.ok {
			t.Errorf("ParseTimestamp(%q) ok = %v, want %v", tt.raw, ok, tt.ok)
			continue
		}
		if !got.Equal(tt.expect) {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.raw, got, tt.expect)
		}
	}
}

func TestReader(t *testing.T) {
	input := "repo_name,path,file_content,boost_version,contains_vendored_boost,last_commit_ts\n" +
		"acme/widget,/src/main.cpp,\"#include <boost/asio.hpp>\n#include <vector>\",1.80,false,2021-03-04 05:06:07 UTC\n" +
		",/src/orphan.cpp,,,TRUE,\n" +
		"acme/vendored,/third_party/boost/asio.hpp,x,,YES,bad-date\n"

	r, err := NewReader(strings.NewReader(input))
	if err != nil {
		t.Fatalf("NewReader() error: %v", err)
	}

	row, err := r.Next()
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if row.RepoName != "acme/widget" || row.Path != "/src/main.cpp" {
		t.Errorf("unexpected row identity: %+v", row)
	}
	if !strings.Contains(row.FileContent, "boost/asio.hpp") {
		t.Errorf("FileContent lost multi-line content: %q", row.FileContent)
	}
	if row.BoostVersion != "1.80" || row.ContainsVendoredBoost {
		t.Errorf("unexpected version/vendored: %+v", row)
	}
	if !row.LastCommit.Equal(time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)) {
		t.Errorf("LastCommit = %v", row.LastCommit)
	}

	row, err = r.Next()
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if row.RepoName != "" || !row.ContainsVendoredBoost || !row.LastCommit.IsZero() {
		t.Errorf("unexpected second row: %+v", row)
	}

	row, err = r.Next()
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if !row.ContainsVendoredBoost || !row.LastCommit.IsZero() {
		t.Errorf("unparseable timestamp should read as zero: %+v", row)
	}

	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next() at end = %v, want io.EOF", err)
	}
}

func TestReader_MissingColumnsAndBOM(t *testing.T) {
	input := "\ufeffrepo_name,file_content\nacme/a,#include <boost/any.hpp>\n"
	r, err := NewReader(strings.NewReader(input))
	if err != nil {
		t.Fatalf("NewReader() error: %v", err)
	}
	row, err := r.Next()
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if row.RepoName != "acme/a" {
		t.Errorf("RepoName = %q, BOM not stripped", row.RepoName)
	}
	if row.Path != "" || row.BoostVersion != "" {
		t.Errorf("missing columns should read empty: %+v", row)
	}
}

func TestNewReader_Empty(t *testing.T) {
	if _, err := NewReader(strings.NewReader("")); err == nil {
		t.Fatal("NewReader() should fail without a header line")
	}
}
