package protocol

import (
	"fmt"
	"strings"
)

// Severity is the accounting system's response classification (alvorlighetsgrad).
type Severity string

const (
	SeverityOK            Severity = "00"
	SeverityOKWithWarning Severity = "04"
	SeveritySeriousError  Severity = "08"
	SeveritySQLError      Severity = "12"
)

func (s Severity) String() string {
	switch s {
	case SeverityOK:
		return "OK"
	case SeverityOKWithWarning:
		return "OK_WITH_WARNING"
	case SeveritySeriousError:
		return "SERIOUS_ERROR"
	case SeveritySQLError:
		return "SQL_ERROR"
	default:
		return "UNKNOWN"
	}
}

// Message is the status block (mmel) on every accounting system response.
type Message struct {
	Severity    string `json:"alvorlighetsgrad"`
	Code        string `json:"kodeMelding,omitempty"`
	Description string `json:"beskrMelding,omitempty"`
}

// SeverityError is raised for SERIOUS_ERROR and SQL_ERROR responses. The
// request was rejected structurally or semantically; it must not be retried.
type SeverityError struct {
	Severity    Severity
	Code        string
	Description string
}

func (e *SeverityError) Error() string {
	return fmt.Sprintf("accounting system rejected request (%s, code %q): %s", e.Severity, e.Code, e.Description)
}

// UnknownSeverityError is raised when the severity code is outside the
// closed set. Unknown input is never read as success.
type UnknownSeverityError struct {
	Code string
}

func (e *UnknownSeverityError) Error() string {
	return fmt.Sprintf("unknown severity code %q", e.Code)
}

// ParseSeverity maps a raw code onto the closed severity set.
func ParseSeverity(code string) (Severity, error) {
	switch s := Severity(strings.TrimSpace(code)); s {
	case SeverityOK, SeverityOKWithWarning, SeveritySeriousError, SeveritySQLError:
		return s, nil
	default:
		return "", &UnknownSeverityError{Code: code}
	}
}

// Classify returns the severity of msg and a non-nil error when the caller
// must stop processing.
func Classify(msg Message) (Severity, error) {
	severity, err := ParseSeverity(msg.Severity)
	if err != nil {
		return "", err
	}
	switch severity {
	case SeveritySeriousError, SeveritySQLError:
		return severity, &SeverityError{
			Severity:    severity,
			Code:        msg.Code,
			Description: msg.Description,
		}
	default:
		return severity, nil
	}
}
