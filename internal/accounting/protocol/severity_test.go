package protocol

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		want      Severity
		wantFatal bool
	}{
		{name: "ok", code: "00", want: SeverityOK},
		{name: "ok with warning", code: "04", want: SeverityOKWithWarning},
		{name: "serious error", code: "08", want: SeveritySeriousError, wantFatal: true},
		{name: "sql error", code: "12", want: SeveritySQLError, wantFatal: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(Message{Severity: tt.code, Code: "B420010I", Description: "melding"})
			assert.Equal(t, tt.want, got)
			if !tt.wantFatal {
				assert.NoError(t, err)
				return
			}
			var sevErr *SeverityError
			require.True(t, errors.As(err, &sevErr))
			assert.Equal(t, tt.want, sevErr.Severity)
			assert.Equal(t, "melding", sevErr.Description)
		})
	}
}

func TestClassifyUnknownCode(t *testing.T) {
	for _, code := range []string{"", "01", "99", "OK"} {
		_, err := Classify(Message{Severity: code})
		var unknown *UnknownSeverityError
		require.True(t, errors.As(err, &unknown), "code %q", code)
		assert.Equal(t, code, unknown.Code)
	}
}
