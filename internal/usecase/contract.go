package usecase

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/pillwise/backend/internal/domain"
)

var contractValidator = validator.New(validator.WithRequiredStructEnabled())

// decodeContract parses a model reply into out and validates it.
// The reply must hold exactly one JSON object, optionally wrapped in a ```json fence.
// Every failure wraps domain.ErrReasoningContract.
func decodeContract(stage, raw string, out any) error {
	body := stripCodeFence(raw)
	if !strings.HasPrefix(body, "{") {
		return fmt.Errorf("%w: %s: reply is not a JSON object", domain.ErrReasoningContract, stage)
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrReasoningContract, stage, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %s: trailing data after JSON object", domain.ErrReasoningContract, stage)
	}

	if err := contractValidator.Struct(out); err != nil {
		return fmt.Errorf("%w: %s: %s", domain.ErrReasoningContract, stage, describeValidation(err))
	}
	return nil
}

// stripCodeFence removes a surrounding ``` or ```json fence
func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// drop the info string, e.g. "json"
		if !strings.ContainsAny(s[:nl], "{[") {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(fields, "; ")
}
