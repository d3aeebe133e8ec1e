package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"mobilid/internal/dispatch/push"
	"mobilid/pkg/platform/tx"
)

// NotifyResult counts what happened to each device of one fan-out.
type NotifyResult struct {
	Devices int
	Sent    int
	Failed  int
	Unbound int
}

// NotifyChanged pushes an empty notification to every device bound to
// serial. A failing device never stops the others; a device whose token the
// push service rejects as unregistered is unbound.
func (d *Dispatcher) NotifyChanged(ctx context.Context, serial string) (NotifyResult, error) {
	ctx, span := d.tracer.Start(ctx, "dispatch.Notify", trace.WithAttributes(attribute.String("pass.serial", serial)))
	defer span.End()

	devices, err := d.directory.ListDevicesForSerial(ctx, serial)
	if err != nil {
		return NotifyResult{}, fmt.Errorf("list devices for %s: %w", serial, err)
	}

	var sent, failed, unbound atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(d.cfg.FanoutConcurrency)
	for _, dev := range devices {
		g.Go(func() error {
			err := d.pusher.Send(ctx, dev.PushAddress, d.cfg.Topic)
			switch {
			case err == nil:
				sent.Add(1)
				d.metrics.IncrementPush("sent")
			case errors.Is(err, push.ErrUnregistered):
				d.metrics.IncrementPush("unregistered")
				uerr := d.tx.RunInTx(tx.WithShardKey(ctx, dev.ID), func(ctx context.Context) error {
					_, err := d.directory.Unbind(ctx, dev.ID, serial)
					return err
				})
				if uerr != nil {
					failed.Add(1)
					d.logger.WarnContext(ctx, "unbind of dead device failed", "serial", serial, "device_id", dev.ID, "error", uerr)
					return nil
				}
				unbound.Add(1)
				d.logger.InfoContext(ctx, "device token rejected, registration removed", "serial", serial, "device_id", dev.ID)
			default:
				failed.Add(1)
				d.metrics.IncrementPush("failed")
				d.logger.WarnContext(ctx, "push failed", "serial", serial, "device_id", dev.ID, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	res := NotifyResult{
		Devices: len(devices),
		Sent:    int(sent.Load()),
		Failed:  int(failed.Load()),
		Unbound: int(unbound.Load()),
	}
	span.SetAttributes(attribute.Int("dispatch.devices", res.Devices), attribute.Int("dispatch.sent", res.Sent))
	return res, nil
}
