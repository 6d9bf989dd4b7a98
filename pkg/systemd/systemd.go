// Package systemd integrates the process with the service manager:
// readiness and stop notifications plus watchdog pings. Every call is
// a no-op outside a systemd unit.
package systemd

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"remindbot/pkg/logx"
)

// NotifyReady tells the service manager startup has finished
// (Type=notify units).
func NotifyReady(log logx.Logger) {
	ok, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		log.Warn("sd_notify ready failed", logx.Err(err))
		return
	}
	if ok {
		log.Debug("sd_notify: ready")
	}
}

// NotifyStopping tells the service manager shutdown has begun.
func NotifyStopping(log logx.Logger) {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
}

// RunWatchdog pings the systemd watchdog at half the configured
// interval until ctx is done. Returns immediately when WatchdogSec is
// not set.
func RunWatchdog(ctx context.Context, log logx.Logger) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		log.Warn("watchdog query failed", logx.Err(err))
		return
	}
	if interval == 0 {
		return
	}

	log.Debug("systemd watchdog enabled", logx.Duration("interval", interval))
	t := time.NewTicker(interval / 2)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
		}
	}
}
