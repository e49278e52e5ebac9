package fmterr

import (
	"context"
	"sync"

	"github.com/pentops/log.go/log"
)

const (
	ActionShowOutput   = "Show Output"
	ActionBugReport    = "Submit Bug Report"
	ActionOpenSettings = "Open Settings"
	ActionDisable      = "Disable Formatting"

	BugReportURL  = "https://github.com/ivan-bocharov/stan-vscode/issues/new"
	SettingsQuery = "stan.format"

	userErrorMessage = "Stan formatting failed due to an error in your program"
	toolErrorPrefix  = "Unknown Error: Could not format Stan file. Full error:\n\n"
)

// Notifier presents messages to the user.
type Notifier interface {
	// ShowError shows message with the given actions and returns the chosen
	// action, or "" if the message was dismissed.
	ShowError(ctx context.Context, message string, actions ...string) (string, error)
	OpenURL(ctx context.Context, url string) error
	OpenSettings(ctx context.Context, query string) error
}

// SettingsWriter persists a single setting.
type SettingsWriter interface {
	Set(ctx context.Context, key string, value interface{}) error
}

// Reporter turns a failed format operation into one output entry and one
// notification. Notifications which offer actions are handled in the
// background so the caller never waits for the user.
type Reporter struct {
	output   Output
	notifier Notifier
	settings SettingsWriter

	wg sync.WaitGroup
}

func NewReporter(output Output, notifier Notifier, settings SettingsWriter) *Reporter {
	return &Reporter{
		output:   output,
		notifier: notifier,
		settings: settings,
	}
}

// Report classifies err and notifies the user. It returns the kind used.
func (r *Reporter) Report(ctx context.Context, err error) Kind {
	if err == nil {
		return KindToolFailure
	}

	kind := Classify(err)
	msg := Message(err)

	ctx = log.WithField(ctx, "errorKind", kind.String())
	log.WithError(ctx, err).Warn("Formatting failed")

	r.output.AppendLine(ctx, msg)

	switch kind {
	case KindUserSyntax, KindUserSemantic:
		r.prompt(ctx, userErrorMessage, []string{ActionShowOutput}, func(ctx context.Context, action string) error {
			r.output.Show(ctx)
			r.output.Clear(ctx)
			r.output.AppendLine(ctx, msg)
			return nil
		})

	case KindEnvironment:
		r.prompt(ctx, msg, []string{ActionOpenSettings, ActionDisable}, func(ctx context.Context, action string) error {
			if action == ActionDisable {
				return r.settings.Set(ctx, "enable", false)
			}
			return r.notifier.OpenSettings(ctx, SettingsQuery)
		})

	case KindIO:
		r.prompt(ctx, msg, nil, nil)

	default:
		r.prompt(ctx, toolErrorPrefix+msg, []string{ActionBugReport}, func(ctx context.Context, action string) error {
			return r.notifier.OpenURL(ctx, BugReportURL)
		})
	}

	return kind
}

func (r *Reporter) prompt(ctx context.Context, message string, actions []string, onAction func(context.Context, string) error) {
	ctx = context.WithoutCancel(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		action, err := r.notifier.ShowError(ctx, message, actions...)
		if err != nil {
			log.WithError(ctx, err).Error("Failed to show notification")
			return
		}
		if action == "" || onAction == nil {
			return
		}

		log.WithField(ctx, "action", action).Debug("Notification action chosen")
		if err := onAction(ctx, action); err != nil {
			log.WithError(ctx, err).Error("Failed to handle notification action")
		}
	}()
}

// Wait blocks until every notification has been answered or dismissed.
func (r *Reporter) Wait() {
	r.wg.Wait()
}
