package container

import (
	"fmt"

	"github.com/samber/do"
	"go.uber.org/zap"
)

// LoggerPackage provides the shared *zap.Logger.
func LoggerPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*zap.Logger, error) {
		opts := do.MustInvoke[*Options](i)

		return NewLogger(opts.LogFormat)
	})
}

// NewLogger builds a development logger for console output or a production
// logger for json.
func NewLogger(format string) (*zap.Logger, error) {
	switch format {
	case "console", "":
		return zap.NewDevelopment()
	case "json":
		return zap.NewProduction()
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}
