package ingest

// documentSchema is the contract for OCR output files. It is deliberately
// strict about shape and loose about content: fragment text may be any
// string, but coordinates and confidences must be well typed numbers.
const documentSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["document_id", "pages"],
  "properties": {
    "document_id": {"type": "string", "minLength": 1},
    "pages": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["number", "fragments"],
        "properties": {
          "number": {"type": "integer", "minimum": 1},
          "fragments": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["text"],
              "properties": {
                "text": {"type": "string"},
                "x": {"type": "number"},
                "y": {"type": "number"},
                "char_confidences": {
                  "type": "array",
                  "items": {"type": "number", "minimum": 0, "maximum": 1}
                }
              }
            }
          }
        }
      }
    }
  }
}`
