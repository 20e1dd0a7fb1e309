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

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/theirish81/locmerge/log"
)

// Streamer relays the events of a StreamerLogger to the client as server-sent events.
type Streamer struct {
	c    echo.Context
	l    *log.StreamerLogger
	mx   sync.Mutex
	done chan struct{}
}

func NewStreamer(c echo.Context, logger *log.StreamerLogger) *Streamer {
	return &Streamer{
		c:    c,
		l:    logger,
		mx:   sync.Mutex{},
		done: make(chan struct{}),
	}
}

// Start sends the headers and relays events until the logger channel is closed or the client goes away.
func (s *Streamer) Start() {
	s.c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	s.c.Response().Header().Set("Cache-Control", "no-cache")
	s.c.Response().Header().Set("Connection", "keep-alive")
	s.c.Response().Header().Set("X-Accel-Buffering", "no")
	s.c.Response().WriteHeader(http.StatusOK)
	events := s.l.Channel()
	go func() {
		defer close(s.done)
		if err := s.streamEvents(events); err != nil {
			s.c.Logger().Error(err)
		}
	}()
}

func (s *Streamer) streamEvents(events chan log.Event) error {
	for {
		select {
		case <-s.c.Request().Context().Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			data, err := toData(event)
			if err != nil {
				return err
			}
			if err := s.Write(data); err != nil {
				return err
			}
		}
	}
}

// Finish closes the logger channel, waits for the pending events to be relayed and sends finalEvent last.
func (s *Streamer) Finish(finalEvent log.Event) error {
	s.l.Close()
	<-s.done
	data, err := toData(finalEvent)
	if err != nil {
		return err
	}
	return s.Write(data)
}

func (s *Streamer) Write(data []byte) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	_, err := s.c.Response().Write(data)
	if err == nil {
		s.c.Response().Flush()
	}
	return err
}

func toData(event log.Event) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("id: %s\nevent: %s\ndata: %s\n\n", event.ID, event.Type, string(data))), nil
}
