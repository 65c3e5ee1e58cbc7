// Package ingest loads OCR output files into documents. Input is validated
// against a JSON schema before decoding so a malformed file is rejected
// with a pointer to the offending element instead of a zero-value struct.
package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/admjesusia/fiscaloliv/internal/common"
	"github.com/admjesusia/fiscaloliv/internal/entity"
)

var schema = jsonschema.MustCompileString("document.json", documentSchema)

// LoadDocumentBytes validates and decodes one OCR output payload.
func LoadDocumentBytes(data []byte) (entity.Document, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return entity.Document{}, common.NewAppError("INGEST_DECODE",
			fmt.Sprintf("not valid JSON: %v", err), common.ErrInvalidInput)
	}
	if err := schema.Validate(v); err != nil {
		return entity.Document{}, common.NewAppError("INGEST_SCHEMA",
			fmt.Sprintf("document does not match schema: %v", err), common.ErrInvalidInput)
	}
	var doc entity.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return entity.Document{}, common.NewAppError("INGEST_DECODE",
			fmt.Sprintf("decode document: %v", err), common.ErrInvalidInput)
	}
	return doc, nil
}

// LoadDocument reads and decodes one OCR output file.
func LoadDocument(path string) (entity.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return entity.Document{}, common.WrapError(err, fmt.Sprintf("read %s", path))
	}
	doc, err := LoadDocumentBytes(data)
	if err != nil {
		return entity.Document{}, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// ListDocuments returns the OCR output files under dir in deterministic
// order. Only *.json files at the top level are considered.
func ListDocuments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, common.WrapError(err, fmt.Sprintf("read directory %s", dir))
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}
