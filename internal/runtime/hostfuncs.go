package runtime

import (
	"context"
	"fmt"

	"github.com/risor-io/risor/object"
	"go.uber.org/zap"
)

// makeFmtPercentFn creates the "fmt_percent" host function.
//
// fmt_percent(pct) → string formatted to one decimal place, e.g. "42.5%"
func makeFmtPercentFn() *object.Builtin {
	return object.NewBuiltin("fmt_percent", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("fmt_percent", 1, len(args))
		}

		var pct float64
		switch v := args[0].(type) {
		case *object.Float:
			pct = v.Value()
		case *object.Int:
			pct = float64(v.Value())
		default:
			return object.Errorf("fmt_percent: expected a number, got %s", args[0].Type())
		}
		return object.NewString(fmt.Sprintf("%.1f%%", pct))
	})
}

// logObject provides log.info/warn/error methods for Risor scripts.
type logObject struct {
	logger *zap.Logger
}

func (l *logObject) Info(msg string) {
	l.logger.Info(msg)
}

func (l *logObject) Warn(msg string) {
	l.logger.Warn(msg)
}

func (l *logObject) Error(msg string) {
	l.logger.Error(msg)
}
