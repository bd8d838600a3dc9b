package testhelpers

import (
	"encoding/json"
	"fmt"
)

// Canned provider payloads for the mock transport. Each takes the
// assistant text so specs can drive the mention engine with real-looking
// provider responses.

func OpenAIResponsePayload(text string) string {
	return fmt.Sprintf(`{
  "id": "resp_0123456789abcdef",
  "object": "response",
  "created_at": 1741476542,
  "status": "completed",
  "error": null,
  "incomplete_details": null,
  "instructions": null,
  "max_output_tokens": null,
  "model": "gpt-4o-2024-08-06",
  "output": [
    {
      "type": "message",
      "id": "msg_0123456789abcdef",
      "status": "completed",
      "role": "assistant",
      "content": [
        {
          "type": "output_text",
          "text": %s,
          "annotations": []
        }
      ]
    }
  ],
  "parallel_tool_calls": true,
  "previous_response_id": null,
  "store": true,
  "temperature": 1.0,
  "text": {
    "format": {
      "type": "text"
    }
  },
  "tool_choice": "auto",
  "tools": [],
  "top_p": 1.0,
  "truncation": "disabled",
  "usage": {
    "input_tokens": 36,
    "input_tokens_details": {
      "cached_tokens": 0
    },
    "output_tokens": 87,
    "output_tokens_details": {
      "reasoning_tokens": 0
    },
    "total_tokens": 123
  },
  "user": null,
  "metadata": {}
}`, jsonString(text))
}

func OpenAIErrorPayload(message string) string {
	return fmt.Sprintf(`{
  "error": {
    "message": %s,
    "type": "invalid_request_error",
    "param": null,
    "code": "invalid_api_key"
  }
}`, jsonString(message))
}

func AnthropicResponsePayload(text string) string {
	return fmt.Sprintf(`{
  "id": "msg_0123456789abcdef",
  "type": "message",
  "role": "assistant",
  "model": "claude-sonnet-4-20250514",
  "content": [
    {
      "type": "text",
      "text": %s
    }
  ],
  "stop_reason": "end_turn",
  "stop_sequence": null,
  "usage": {
    "input_tokens": 32,
    "output_tokens": 80
  }
}`, jsonString(text))
}

func AnthropicErrorPayload(message string) string {
	return fmt.Sprintf(`{
  "type": "error",
  "error": {
    "type": "authentication_error",
    "message": %s
  }
}`, jsonString(message))
}

func GeminiResponsePayload(text string) string {
	return fmt.Sprintf(`{
  "candidates": [
    {
      "content": {
        "parts": [
          {
            "text": %s
          }
        ],
        "role": "model"
      },
      "finishReason": "STOP",
      "index": 0
    }
  ],
  "usageMetadata": {
    "promptTokenCount": 21,
    "candidatesTokenCount": 74,
    "totalTokenCount": 95
  },
  "modelVersion": "gemini-2.0-flash"
}`, jsonString(text))
}

func GeminiErrorPayload(message string) string {
	return fmt.Sprintf(`{
  "error": {
    "code": 400,
    "message": %s,
    "status": "INVALID_ARGUMENT"
  }
}`, jsonString(message))
}

func jsonString(s string) string {
	raw, err := json.Marshal(s)
	if err != nil {
		panic(fmt.Sprintf("fixtures: failed to encode string: %v", err))
	}
	return string(raw)
}
