package app

import (
	"log/slog"
	"os"

	"github.com/shandysiswandi/phoneverify/internal/phoneotp"
)

func (a *App) initModules() {
	if a.config.GetBool("modules.phoneotp.enabled") {
		mod, err := phoneotp.New(phoneotp.Dependency{
			Ctx:        a.ctx,
			Router:     a.router,
			Goroutine:  a.goroutine,
			Messaging:  a.messaging,
			Config:     a.config,
			Instrument: a.ins,
			UID:        a.uid,
			UUID:       a.uuid,
			HMAC:       a.hmac,
			Clock:      a.clock,
			Validator:  a.validator,
		})
		if err != nil {
			slog.Error("failed to init module phoneotp", "error", err)
			os.Exit(1)
		}

		if mod.Gateway.Mock() != nil {
			slog.Warn("sms mock mode is on, codes are logged and never sent")
		}
		a.phoneotp = mod
	}
}
