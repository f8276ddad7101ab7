package channel

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/akolanti/DocWatch/internal/domain/jobModel"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const (
	typeProgressUpdate = "progress_update"
	typeJobStatus      = "job_status"
	typePing           = "ping"
	typePong           = "pong"
)

// Only the shapes we act on are constrained; any other type passes and is ignored.
const messageSchema = `{
  "type": "object",
  "required": ["type"],
  "properties": { "type": { "type": "string" } },
  "allOf": [
    {
      "if": { "properties": { "type": { "const": "progress_update" } } },
      "then": {
        "required": ["progress"],
        "properties": {
          "progress": {
            "type": "object",
            "properties": {
              "completion_percentage": { "type": "number", "minimum": 0, "maximum": 100 },
              "total_pages": { "type": "integer", "minimum": 0 },
              "processed_pages": { "type": "integer", "minimum": 0 },
              "current_stage": { "type": "string" }
            }
          }
        }
      }
    },
    {
      "if": { "properties": { "type": { "const": "job_status" } } },
      "then": {
        "required": ["status"],
        "properties": {
          "status": { "type": "string" },
          "error_message": { "type": ["string", "null"] }
        }
      }
    }
  ]
}`

type inboundMessage struct {
	Type         string                     `json:"type"`
	Progress     *jobModel.ProgressSnapshot `json:"progress,omitempty"`
	Status       string                     `json:"status,omitempty"`
	ErrorMessage string                     `json:"error_message,omitempty"`
}

type outboundMessage struct {
	Type string `json:"type"`
}

var (
	compiled   *jsonschema.Schema
	compileErr error
	compileMu  sync.Once
)

func messageValidator() (*jsonschema.Schema, error) {
	compileMu.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("progress_message.json", strings.NewReader(messageSchema)); err != nil {
			compileErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiled, compileErr = compiler.Compile("progress_message.json")
	})
	return compiled, compileErr
}

// decodeMessage parses one frame. Anything that is not a schema-valid JSON object is a protocol violation.
func decodeMessage(data []byte) (inboundMessage, error) {
	var msg inboundMessage
	schema, err := messageValidator()
	if err != nil {
		return msg, fmt.Errorf("%w: %v", jobModel.ErrProtocol, err)
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return msg, fmt.Errorf("%w: malformed frame: %v", jobModel.ErrProtocol, err)
	}
	if err := schema.Validate(raw); err != nil {
		return msg, fmt.Errorf("%w: %v", jobModel.ErrProtocol, err)
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, fmt.Errorf("%w: %v", jobModel.ErrProtocol, err)
	}
	return msg, nil
}
