package sse

import (
	"bytes"
	"strconv"
	"strings"

	fetchhttp "github.com/abdul-hamid-achik/fetch/packages/http"
)

// Event represents a single SSE event.
type Event struct {
	ID    string
	Type  string
	Data  string
	Retry int
}

// EventHandler is a callback for handling SSE events.
type EventHandler func(event Event)

// Decoder turns an event stream delivered in arbitrary fragments into
// events. Lines split across fragments are reassembled. A Decoder is not
// safe for concurrent use.
type Decoder struct {
	handler EventHandler

	partial   []byte
	event     Event
	dataLines []string
	hasData   bool
	lastID    string
	count     int
}

func NewDecoder(handler EventHandler) *Decoder {
	return &Decoder{handler: handler}
}

// OnChunk feeds a streamed response fragment. Its signature matches
// http.ChunkFunc.
func (d *Decoder) OnChunk(c fetchhttp.Chunk) {
	_, _ = d.Write(c.Data())
}

// Write consumes raw stream bytes and dispatches every completed event.
func (d *Decoder) Write(p []byte) (int, error) {
	d.partial = append(d.partial, p...)
	for {
		i := bytes.IndexByte(d.partial, '\n')
		if i < 0 {
			break
		}
		line := strings.TrimSuffix(string(d.partial[:i]), "\r")
		d.partial = d.partial[i+1:]
		d.processLine(line)
	}
	return len(p), nil
}

// Flush treats any buffered partial line as complete and dispatches a
// pending event, as at end of stream.
func (d *Decoder) Flush() {
	if len(d.partial) > 0 {
		line := strings.TrimSuffix(string(d.partial), "\r")
		d.partial = nil
		d.processLine(line)
	}
	d.dispatch()
}

// LastEventID is the most recent id field seen, for reconnection.
func (d *Decoder) LastEventID() string {
	return d.lastID
}

// Count is the number of events dispatched so far.
func (d *Decoder) Count() int {
	return d.count
}

func (d *Decoder) processLine(line string) {
	// Empty line signals end of event
	if line == "" {
		d.dispatch()
		return
	}

	// Comment
	if strings.HasPrefix(line, ":") {
		return
	}

	field, value, found := strings.Cut(line, ":")
	if found {
		value = strings.TrimPrefix(value, " ")
	}

	switch field {
	case "event":
		d.event.Type = value
	case "data":
		d.dataLines = append(d.dataLines, value)
		d.hasData = true
	case "id":
		if !strings.Contains(value, "\x00") {
			d.lastID = value
		}
	case "retry":
		if ms, err := strconv.Atoi(value); err == nil && ms >= 0 {
			d.event.Retry = ms
		}
	}
}

func (d *Decoder) dispatch() {
	if d.hasData {
		d.event.ID = d.lastID
		d.event.Data = strings.Join(d.dataLines, "\n")
		d.count++
		if d.handler != nil {
			d.handler(d.event)
		}
	}
	d.event = Event{}
	d.dataLines = nil
	d.hasData = false
}
