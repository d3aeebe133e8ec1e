package e2e

import (
	"context"

	"github.com/cucumber/godog"

	"mobilid/e2e/steps/common"
	"mobilid/e2e/steps/passes"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	ctx.Before(func(c context.Context, _ *godog.Scenario) (context.Context, error) {
		tc.reset()
		return c, nil
	})

	common.RegisterSteps(ctx, tc)
	passes.RegisterSteps(ctx, tc)
}
