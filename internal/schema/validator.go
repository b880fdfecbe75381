// Package schema validates outbound payloads before they reach a client.
package schema

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"scam-guard-service/internal/models"
)

// ErrInvalidVerdict is returned for verdicts that break the wire contract.
var ErrInvalidVerdict = errors.New("invalid verdict")

var statusColors = map[models.Status]string{
	models.StatusSafe:       models.ColorGreen,
	models.StatusSuspicious: models.ColorOrange,
	models.StatusScam:       models.ColorRed,
	models.StatusError:      models.ColorGray,
}

type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// Validate checks a verdict against the client contract: known status,
// matching color, non-empty message, confidence in [0,1] and absent on ERROR.
func (v *Validator) Validate(verdict models.Verdict) error {
	color, ok := statusColors[verdict.Status]
	if !ok {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidVerdict, verdict.Status)
	}
	if verdict.Color != color {
		return fmt.Errorf("%w: color %q does not match status %s", ErrInvalidVerdict, verdict.Color, verdict.Status)
	}
	if strings.TrimSpace(verdict.Message) == "" {
		return fmt.Errorf("%w: empty message", ErrInvalidVerdict)
	}
	if verdict.Confidence == nil {
		return nil
	}
	if verdict.Status == models.StatusError {
		return fmt.Errorf("%w: ERROR verdict carries a confidence", ErrInvalidVerdict)
	}
	if c := *verdict.Confidence; math.IsNaN(c) || c < 0 || c > 1 {
		return fmt.Errorf("%w: confidence %v out of range", ErrInvalidVerdict, c)
	}
	return nil
}
