package extract

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantIDs []string
	}{
		{
			name:    "two documents",
			content: "<doc id=\"12\" title=\"A\">\nalpha\n</doc>\n<doc id=\"7\" title=\"B\">\nbeta\n</doc>\n",
			wantIDs: []string{"12", "7"},
		},
		{
			name:    "trailing partial block",
			content: "<doc id=\"1\">\nx\n</doc>\n<doc id=\"2\">\nunfinished",
			wantIDs: []string{"1"},
		},
		{
			name:    "end tag without newline",
			content: "<doc id=\"1\">\nx\n</doc>",
			wantIDs: nil,
		},
		{
			name:    "non numeric id skipped",
			content: "<doc id=\"abc\">\nx\n</doc>\n<doc id=\"3\">\ny\n</doc>\n",
			wantIDs: []string{"3"},
		},
		{
			name:    "stray end tag stops scan",
			content: "junk</doc>\n<doc id=\"4\">\nz\n</doc>\n",
			wantIDs: nil,
		},
		{
			name:    "empty",
			content: "",
			wantIDs: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs := Split([]byte(tt.content))
			if len(docs) != len(tt.wantIDs) {
				t.Fatalf("Split returned %d docs, want %d", len(docs), len(tt.wantIDs))
			}
			for i, d := range docs {
				if d.ID != tt.wantIDs[i] {
					t.Errorf("doc %d id = %q, want %q", i, d.ID, tt.wantIDs[i])
				}
			}
		})
	}
}

func TestSplitKeepsBlockVerbatim(t *testing.T) {
	block := "<doc id=\"5\" url=\"u\">\nBody text.\n</doc>\n"
	docs := Split([]byte("preamble\n" + block + "tail"))
	if len(docs) != 1 || string(docs[0].Content) != block {
		t.Fatalf("Split = %+v", docs)
	}
}

func TestExtractDir(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "docs")
	if err := os.MkdirAll(filepath.Join(in, "AA"), 0755); err != nil {
		t.Fatal(err)
	}
	dump := "<doc id=\"10\">\nten\n</doc>\n<doc id=\"11\">\neleven\n</doc>\n"
	if err := os.WriteFile(filepath.Join(in, "AA", "wiki_00"), []byte(dump), 0644); err != nil {
		t.Fatal(err)
	}

	sum, err := ExtractDir(context.Background(), in, out)
	if err != nil {
		t.Fatalf("ExtractDir: %v", err)
	}
	if sum.Files != 1 || sum.Docs != 2 {
		t.Errorf("summary = %+v", sum)
	}
	got, err := os.ReadFile(filepath.Join(out, "11"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "<doc id=\"11\">\neleven\n</doc>\n" {
		t.Errorf("doc 11 = %q", got)
	}
}
