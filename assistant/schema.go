package assistant

import "github.com/xeipuuv/gojsonschema"

// The model's JSON output is checked against this contract before anything
// is trusted. An invalid document is treated like a parse failure.
const intentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "Intent Contract",
  "type": "object",
  "required": ["intent"],
  "properties": {
    "intent": {
      "type": "string",
      "enum": [
        "small_talk",
        "show_appointments",
        "book_appointment",
        "update_payment",
        "create_report",
        "calc",
        "get_time",
        "show_client_stats"
      ]
    },
    "name": {"type": "string"},
    "date": {"type": "string"},
    "time": {"type": "string"},
    "amount": {"type": ["string", "number"]},
    "expression": {"type": "string"},
    "report_type": {"type": "string"}
  }
}`

func newIntentSchema() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(intentSchema))
}
