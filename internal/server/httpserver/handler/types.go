package handler

import "time"

// Response is the standard API response envelope.
// All JSON responses use this format (except /metrics which uses Prometheus format).
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string, details any) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Details:   details,
	}
}

// AppendRecordRequest is the request body for POST /v1/records.
// Payload is base64 in JSON; PayloadText is a convenience for UTF-8
// payloads. Setting both is an error.
type AppendRecordRequest struct {
	ReasonTag   string `json:"reason_tag"`
	Payload     []byte `json:"payload,omitempty"`
	PayloadText string `json:"payload_text,omitempty"`
}

// CorruptionDetails is attached to 422 responses.
type CorruptionDetails struct {
	Path     string  `json:"path,omitempty"`
	Sequence *uint64 `json:"sequence,omitempty"`
	Offset   int64   `json:"offset"`
	Reason   string  `json:"reason"`
}
