package service

import (
	"time"

	"golang-news-slate/pkg/logger"
	"golang-news-slate/pkg/telegram"
	"golang-news-slate/pkg/utils"
)

// Alerter notifies operators. Sending never blocks nor fails the caller.
type Alerter interface {
	Alert(severity telegram.Severity, title, detail string)
	Send(text string)
}

// NewAlerter creates an Alerter delivering through notifier in the background.
func NewAlerter(notifier telegram.Notifier, log *logger.Logger) Alerter {
	return &alerter{
		notifier: notifier,
		logger:   log,
		now:      time.Now,
		dispatch: func(fn func()) { utils.GoSafe(log, fn) },
	}
}

type alerter struct {
	notifier telegram.Notifier
	logger   *logger.Logger
	now      func() time.Time
	dispatch func(func())
}

func (a *alerter) Alert(severity telegram.Severity, title, detail string) {
	a.Send(telegram.FormatAlertMessage(a.now(), severity, title, detail))
}

func (a *alerter) Send(text string) {
	a.dispatch(func() {
		if err := a.notifier.SendMessage(text); err != nil {
			a.logger.Error("Failed to send telegram message", logger.ErrorField(err))
		}
	})
}
