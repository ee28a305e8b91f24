package hotspot

import (
	"context"
	"strings"
)

// fakeRunner replays canned command output keyed by the full command line.
// Unknown commands succeed with empty output unless strict is set.
type fakeRunner struct {
	responses map[string]fakeResponse
	calls     []string
}

type fakeResponse struct {
	out string
	err error
}

func (r *fakeRunner) Run(_ context.Context, name string, args ...string) (string, error) {
	cmd := strings.Join(append([]string{name}, args...), " ")
	r.calls = append(r.calls, cmd)
	if resp, ok := r.responses[cmd]; ok {
		return resp.out, resp.err
	}
	return "", nil
}

func (r *fakeRunner) called(prefix string) bool {
	for _, c := range r.calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}
