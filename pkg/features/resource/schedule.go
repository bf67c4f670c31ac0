package resource

import (
	"github.com/robfig/cron/v3"

	kerrors "github.com/vango-dev/klinecore/internal/errors"
)

// ParseSchedule validates a refresh schedule. Schedules use six fields,
// seconds first.
func ParseSchedule(spec string) error {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(spec); err != nil {
		return kerrors.New("E202").WithDetailf("schedule %q: %v", spec, err).Wrap(err)
	}
	return nil
}

// RefreshSchedule refetches the resource on a cron schedule. Ticks are
// delivered through Runtime.Dispatch, so the runtime must be running its
// dispatch loop. The schedule stops when the resource is disposed.
func (r *Resource[K, T]) RefreshSchedule(spec string) error {
	if r.ctx.Err() != nil {
		return nil
	}

	c := cron.New(cron.WithSeconds())
	_, err := c.AddFunc(spec, func() {
		r.rt.Dispatch(r.Refetch)
	})
	if err != nil {
		return kerrors.New("E202").WithDetailf("schedule %q: %v", spec, err).Wrap(err)
	}

	c.Start()
	r.rt.Logger().Debug("resource refresh scheduled", "resource", r.name, "schedule", spec)
	r.stops = append(r.stops, func() {
		c.Stop()
	})
	return nil
}
