// Package cli implements the fbscrape command line.
package cli

import (
	"context"

	"github.com/law-makers/fbscrape/internal/app"
	"github.com/spf13/cobra"
)

type ctxKey struct{}

// withApp stores the Application in the command context
func withApp(cmd *cobra.Command, a *app.Application) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, ctxKey{}, a))
}

// appFrom returns the Application set up by the root pre-run hook
func appFrom(cmd *cobra.Command) *app.Application {
	if ctx := cmd.Context(); ctx != nil {
		if a, ok := ctx.Value(ctxKey{}).(*app.Application); ok {
			return a
		}
	}
	return nil
}
