package utils

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/valyala/fasthttp"
)

// SequenceValidator checks a proposed sequence change against the
// external validation webhook before it is applied. The webhook is
// advisory: an unreachable endpoint downgrades to warn-and-continue, but
// an explicit rejection blocks the edit.
type SequenceValidator struct {
	URL     string // empty disables the check entirely
	Timeout time.Duration
	Logger  *log.Logger

	client *fasthttp.Client
}

func NewSequenceValidator(url string, timeout time.Duration, logger *log.Logger) *SequenceValidator {
	return &SequenceValidator{
		URL:     url,
		Timeout: timeout,
		Logger:  logger,
		client: &fasthttp.Client{
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		},
	}
}

type sequenceValidationPayload struct {
	SequenceID uint        `json:"sequence_id"`
	Action     string      `json:"action"`
	Change     interface{} `json:"change,omitempty"`
}

type sequenceValidationVerdict struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

// Validate posts the proposed change. Returns a ValidationError only when
// the webhook explicitly rejects it.
func (sv *SequenceValidator) Validate(sequenceID uint, action string, change interface{}) error {
	if sv.URL == "" {
		return nil
	}

	body, err := json.Marshal(sequenceValidationPayload{
		SequenceID: sequenceID,
		Action:     action,
		Change:     change,
	})
	if err != nil {
		return err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(sv.URL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	if err := sv.client.DoTimeout(req, resp, sv.Timeout); err != nil {
		sv.Logger.Printf("Sequence validation webhook unreachable, continuing: %v", err)
		return nil
	}

	status := resp.StatusCode()
	if status >= fasthttp.StatusInternalServerError {
		sv.Logger.Printf("Sequence validation webhook returned %d, continuing", status)
		return nil
	}

	var verdict sequenceValidationVerdict
	if err := json.Unmarshal(resp.Body(), &verdict); err != nil {
		sv.Logger.Printf("Sequence validation webhook sent malformed verdict, continuing: %v", err)
		return nil
	}

	if !verdict.Allowed {
		msg := verdict.Reason
		if msg == "" {
			msg = fmt.Sprintf("change rejected by validation webhook (status %d)", status)
		}
		return &ValidationError{Field: "sequence", Message: msg}
	}
	return nil
}
