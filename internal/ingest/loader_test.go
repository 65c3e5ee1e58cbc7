package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/admjesusia/fiscaloliv/internal/common"
)

const goodDoc = `{
  "document_id": "nfce-1",
  "pages": [
    {
      "number": 1,
      "fragments": [
        {"text": "CNPJ 11.222.333/0001-81", "x": 0, "y": 10},
        {"text": "VALOR A PAGAR 30,00", "x": 0, "y": 20, "char_confidences": [0.9, 0.8]}
      ]
    }
  ]
}`

func TestLoadDocumentBytes(t *testing.T) {
	doc, err := LoadDocumentBytes([]byte(goodDoc))
	if err != nil {
		t.Fatalf("LoadDocumentBytes: %v", err)
	}
	if doc.ID != "nfce-1" || len(doc.Pages) != 1 || len(doc.Pages[0].Fragments) != 2 {
		t.Errorf("doc = %+v", doc)
	}
	if got := doc.Pages[0].Fragments[1].Confidence(); got != 0.85 {
		t.Errorf("fragment confidence = %v, want 0.85", got)
	}
}

func TestLoadDocumentBytesRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{"document_id": `},
		{"missing id", `{"pages": [{"number": 1, "fragments": []}]}`},
		{"empty id", `{"document_id": "", "pages": [{"number": 1, "fragments": []}]}`},
		{"no pages", `{"document_id": "x", "pages": []}`},
		{"page number zero", `{"document_id": "x", "pages": [{"number": 0, "fragments": []}]}`},
		{"fragment without text", `{"document_id": "x", "pages": [{"number": 1, "fragments": [{"x": 1}]}]}`},
		{"confidence out of range", `{"document_id": "x", "pages": [{"number": 1, "fragments": [{"text": "a", "char_confidences": [1.5]}]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadDocumentBytes([]byte(tt.data))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, common.ErrInvalidInput) {
				t.Errorf("error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestLoadDocumentFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")
	if err := os.WriteFile(path, []byte(goodDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	doc, err := LoadDocument(path)
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	if doc.ID != "nfce-1" {
		t.Errorf("doc.ID = %q", doc.ID)
	}

	if _, err := LoadDocument(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestListDocuments(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.json", "a.json", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.json"), 0o755); err != nil {
		t.Fatal(err)
	}

	paths, err := ListDocuments(dir)
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	want := []string{filepath.Join(dir, "a.json"), filepath.Join(dir, "b.json")}
	if len(paths) != 2 || paths[0] != want[0] || paths[1] != want[1] {
		t.Errorf("paths = %v, want %v", paths, want)
	}
}
