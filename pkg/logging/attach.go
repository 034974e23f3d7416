package logging

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/zoobzio/capitan"

	"github.com/zoobzio/hotplug"
)

// levels assigns a log level to every Reconciler signal.
var levels = []struct {
	signal capitan.Signal
	level  zerolog.Level
}{
	{hotplug.ReconcilerStarted, zerolog.InfoLevel},
	{hotplug.ReconcilerStopped, zerolog.InfoLevel},
	{hotplug.TransitionReported, zerolog.InfoLevel},
	{hotplug.SourceFailed, zerolog.ErrorLevel},
	{hotplug.NotifyFailed, zerolog.ErrorLevel},
	{hotplug.ControllerQueryFailed, zerolog.WarnLevel},
	{hotplug.TransitionPending, zerolog.DebugLevel},
	{hotplug.TransitionAbsorbed, zerolog.DebugLevel},
	{hotplug.TransitionDiscarded, zerolog.DebugLevel},
	{hotplug.PhaseChanged, zerolog.TraceLevel},
	{hotplug.EventsReceived, zerolog.DebugLevel},
	{hotplug.CycleCompleted, zerolog.TraceLevel},
}

var stringKeys = []capitan.StringKey{
	hotplug.KeyController,
	hotplug.KeyConnector,
	hotplug.KeyState,
	hotplug.KeyKind,
	hotplug.KeyReason,
	hotplug.KeyOldPhase,
	hotplug.KeyNewPhase,
	hotplug.KeyError,
}

var intKeys = []capitan.IntKey{
	hotplug.KeyConnectorID,
	hotplug.KeyEvents,
	hotplug.KeyCandidates,
	hotplug.KeyReported,
	hotplug.KeyPending,
	hotplug.KeyControllers,
}

var durationKeys = []capitan.DurationKey{
	hotplug.KeyQuietPeriod,
	hotplug.KeyPollInterval,
	hotplug.KeyElapsed,
}

// Attach hooks every Reconciler signal and writes it to logger. Fields
// present on the event become structured fields of the log line.
func Attach(logger zerolog.Logger) {
	for _, l := range levels {
		name := l.signal.Name()
		level := l.level
		capitan.Hook(l.signal, func(_ context.Context, e *capitan.Event) {
			write(logger, level, name, e)
		})
	}
}

func write(logger zerolog.Logger, level zerolog.Level, name string, e *capitan.Event) {
	ev := logger.WithLevel(level)
	if ev == nil {
		return
	}

	for _, k := range stringKeys {
		if v, ok := k.From(e); ok {
			ev = ev.Str(k.Name(), v)
		}
	}
	for _, k := range intKeys {
		if v, ok := k.From(e); ok {
			ev = ev.Int(k.Name(), v)
		}
	}
	for _, k := range durationKeys {
		if v, ok := k.From(e); ok {
			ev = ev.Dur(k.Name(), v)
		}
	}

	ev.Str("signal", name).Msg(name)
}
