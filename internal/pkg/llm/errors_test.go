package llm

import (
	"errors"
	"fmt"
	"testing"

	"google.golang.org/api/googleapi"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantClient bool
	}{
		{"openai 401", errors.New("error, status code: 401, status: 401 Unauthorized, message: Incorrect API key provided"), true},
		{"openai 400", errors.New("error, status code: 400, status: 400 Bad Request"), true},
		{"status 403", errors.New("request failed: status=403"), true},
		{"rate limited", errors.New("error, status code: 429, status: 429 Too Many Requests"), false},
		{"server error", errors.New("error, status code: 502, status: 502 Bad Gateway"), false},
		{"invalid request keyword", errors.New("invalid_request_error: max_tokens too large"), true},
		{"api key keyword", errors.New("API key not valid. Please pass a valid API key."), true},
		{"network", errors.New("dial tcp: connection refused"), false},
		{"googleapi 403", &googleapi.Error{Code: 403, Message: "forbidden"}, true},
		{"googleapi 500", &googleapi.Error{Code: 500, Message: "internal"}, false},
		{"wrapped googleapi 400", fmt.Errorf("generate: %w", &googleapi.Error{Code: 400}), true},
		{"empty response", ErrEmptyResponse, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if IsClientError(got) != tt.wantClient {
				t.Errorf("Classify(%v) client=%v, want %v", tt.err, IsClientError(got), tt.wantClient)
			}
			if !errors.Is(got, tt.err) {
				t.Errorf("classified error should wrap the original")
			}
		})
	}
}

func TestClassify_KeepsTypedErrors(t *testing.T) {
	ce := &ClientError{StatusCode: 401, Err: errors.New("x")}
	if got := Classify(ce); got != ce {
		t.Errorf("expected ClientError to pass through")
	}
	te := &TransientError{Err: errors.New("y")}
	if got := Classify(te); got != te {
		t.Errorf("expected TransientError to pass through")
	}
	if Classify(nil) != nil {
		t.Errorf("expected nil for nil error")
	}
}
