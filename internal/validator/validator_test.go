package validator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/JakeFAU/vc-portfolio-digest/internal/llm"
)

type mockCompleter struct {
	mock.Mock
}

func (m *mockCompleter) Complete(ctx context.Context, req llm.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		answer string
		err    error
		want   Verdict
	}{
		{name: "valid", answer: "VALID: Appears to be a company domain",
			want: Verdict{Valid: true, Reason: "VALID: Appears to be a company domain"}},
		{name: "lowercase with spaces", answer: "  valid: startup site \n",
			want: Verdict{Valid: true, Reason: "valid: startup site"}},
		{name: "invalid", answer: "INVALID: This is a LinkedIn profile page",
			want: Verdict{Valid: false, Reason: "INVALID: This is a LinkedIn profile page"}},
		{name: "unexpected answer", answer: "Maybe?",
			want: Verdict{Valid: false, Reason: "Maybe?"}},
		{name: "api error fails open", err: errors.New("timeout"),
			want: Verdict{Valid: true, Reason: FailOpenReason}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			m := &mockCompleter{}
			m.On("Complete", mock.Anything, mock.MatchedBy(func(r llm.Request) bool {
				return r.Purpose == "validate" && r.MaxTokens == 50 &&
					strings.HasPrefix(r.User, "Analyze this URL: https://acme.io\n") &&
					strings.HasPrefix(r.System, "You are a URL validator")
			})).Return(tc.answer, tc.err).Once()

			got := New(m, true, nil).Validate(context.Background(), "https://acme.io")
			assert.Equal(t, tc.want, got)
			m.AssertExpectations(t)
		})
	}
}

func TestValidateDisabled(t *testing.T) {
	t.Parallel()

	m := &mockCompleter{}
	got := New(m, false, nil).Validate(context.Background(), "https://linkedin.com/in/x")
	assert.True(t, got.Valid)
	m.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}
