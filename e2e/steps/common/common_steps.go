package common

import (
	"context"
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	Do(ctx context.Context, method, path string, body any, headers map[string]string) error
	Status() int
	Header(k string) string
	JSONField(field string) (any, error)
	Expand(s string) string
	Set(name, value string)
}

// RegisterSteps registers generic request and assertion steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^I send a (GET|POST|DELETE) request to "([^"]*)"$`, steps.sendRequest)
	ctx.Step(`^the response status should be (\d+)$`, steps.statusShouldBe)
	ctx.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, steps.headerShouldBe)
	ctx.Step(`^the response header "([^"]*)" should be present$`, steps.headerShouldBePresent)
	ctx.Step(`^the response field "([^"]*)" should contain "([^"]*)"$`, steps.fieldShouldContain)
	ctx.Step(`^I remember the response header "([^"]*)" as "([^"]*)"$`, steps.rememberHeader)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) sendRequest(ctx context.Context, method, path string) error {
	return s.tc.Do(ctx, method, path, nil, nil)
}

func (s *commonSteps) statusShouldBe(_ context.Context, want int) error {
	if got := s.tc.Status(); got != want {
		return fmt.Errorf("status %d, want %d", got, want)
	}
	return nil
}

func (s *commonSteps) headerShouldBe(_ context.Context, name, want string) error {
	if got := s.tc.Header(name); got != s.tc.Expand(want) {
		return fmt.Errorf("header %s is %q, want %q", name, got, want)
	}
	return nil
}

func (s *commonSteps) headerShouldBePresent(_ context.Context, name string) error {
	if s.tc.Header(name) == "" {
		return fmt.Errorf("header %s missing", name)
	}
	return nil
}

func (s *commonSteps) fieldShouldContain(_ context.Context, field, want string) error {
	v, err := s.tc.JSONField(field)
	if err != nil {
		return err
	}
	want = s.tc.Expand(want)
	switch val := v.(type) {
	case string:
		if !strings.Contains(val, want) {
			return fmt.Errorf("field %s is %q, want it to contain %q", field, val, want)
		}
	case []any:
		for _, item := range val {
			if fmt.Sprint(item) == want {
				return nil
			}
		}
		return fmt.Errorf("field %s %v does not contain %q", field, val, want)
	default:
		return fmt.Errorf("field %s has unexpected type %T", field, v)
	}
	return nil
}

func (s *commonSteps) rememberHeader(_ context.Context, name, as string) error {
	v := s.tc.Header(name)
	if v == "" {
		return fmt.Errorf("header %s missing", name)
	}
	s.tc.Set(as, v)
	return nil
}
