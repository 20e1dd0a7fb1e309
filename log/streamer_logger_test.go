/*
 * Copyright (C) 2026 Simone Pezzano
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as
 * published by the Free Software Foundation, either version 3 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

package log

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLogger(ch chan Event, level ChannelLevel) *StreamerLogger {
	return NewStreamerLogger(slog.New(slog.DiscardHandler), ch, level)
}

func TestStreamerLogger_Info(t *testing.T) {
	ch := make(chan Event, 1)
	streamerLogger := newTestLogger(ch, InfoChannelLevel)

	streamerLogger.Info(NewEvent(LoadEventType, ParserComponent).WithMessage("loaded").WithFile("en/common.yaml"))

	select {
	case receivedEvent := <-ch:
		assert.Equal(t, "loaded", receivedEvent.Message)
		assert.Equal(t, "info", receivedEvent.Level)
		assert.Equal(t, "en/common.yaml", *receivedEvent.File)
	case <-time.After(1 * time.Second):
		t.Error("Timed out waiting for event")
	}
}

func TestStreamerLogger_Debug(t *testing.T) {
	ch := make(chan Event, 1)
	streamerLogger := newTestLogger(ch, DebugChannelLevel)

	streamerLogger.Debug(NewEvent(GenericEventType, AppComponent).WithMessage("test debug"))

	select {
	case receivedEvent := <-ch:
		assert.Equal(t, "test debug", receivedEvent.Message)
	case <-time.After(1 * time.Second):
		t.Error("Timed out waiting for event")
	}
}

func TestStreamerLogger_DebugWithInfoLevel(t *testing.T) {
	ch := make(chan Event, 1)
	streamerLogger := newTestLogger(ch, InfoChannelLevel)

	streamerLogger.Debug(NewEvent(GenericEventType, AppComponent).WithMessage("test debug with info level"))

	select {
	case <-ch:
		t.Error("Received unexpected event on channel for debug message with info level")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestStreamerLogger_WarnAndErr(t *testing.T) {
	ch := make(chan Event, 2)
	streamerLogger := newTestLogger(ch, InfoChannelLevel)

	streamerLogger.Warn(NewEvent(CollisionEventType, MergerComponent).WithMessage("overwritten").WithKey("a.b"))
	streamerLogger.Err(NewEvent(ErrorEventType, ParserComponent).WithErr(errors.New("boom")))

	warn := <-ch
	assert.Equal(t, "warn", warn.Level)
	assert.Equal(t, "a.b", *warn.Key)
	failure := <-ch
	assert.Equal(t, "err", failure.Level)
	assert.Equal(t, "boom", failure.Err.Error())
}

func TestStreamerLogger_FullChannel(t *testing.T) {
	ch := make(chan Event, 1)
	streamerLogger := newTestLogger(ch, InfoChannelLevel)

	streamerLogger.Info(NewEvent(GenericEventType, AppComponent).WithMessage("first"))
	// must not block
	streamerLogger.Info(NewEvent(GenericEventType, AppComponent).WithMessage("second"))

	receivedEvent := <-ch
	assert.Equal(t, "first", receivedEvent.Message)
	select {
	case <-ch:
		t.Error("Received unexpected second event on channel")
	default:
	}
}

func TestStreamerLogger_Close(t *testing.T) {
	ch := make(chan Event, 1)
	streamerLogger := newTestLogger(ch, InfoChannelLevel)

	streamerLogger.Close()
	assert.Nil(t, streamerLogger.Channel())

	// sending after close is a no-op
	streamerLogger.Info(NewEvent(GenericEventType, AppComponent).WithMessage("test after close"))
}

func TestEvent_ToArray(t *testing.T) {
	event := NewEvent(LoadEventType, ParserComponent).
		WithMessage("ignored").
		WithFile("de/app.json").
		WithFormat("json").
		WithArg("keys", 3)
	arr := event.ToArray()
	assert.Contains(t, arr, "file")
	assert.Contains(t, arr, "de/app.json")
	assert.Contains(t, arr, "format")
	assert.Contains(t, arr, "keys")
	assert.NotContains(t, arr, "message")
	assert.NotContains(t, arr, "key")
}
