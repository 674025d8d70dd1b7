package notify

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// Notifier delivers a user-facing alert. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, title, message string) error
}

type logNotifier struct{}

// NewLogNotifier writes alerts to the context logger.
func NewLogNotifier() Notifier {
	return logNotifier{}
}

func (logNotifier) Notify(ctx context.Context, title, message string) error {
	zerolog.Ctx(ctx).Warn().Str("title", title).Msg(message)
	return nil
}

// Multi sends each alert to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, title, message string) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, title, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
