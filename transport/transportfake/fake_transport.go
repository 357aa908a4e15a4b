// Package transportfake provides a scripted transport.Doer for tests.
package transportfake

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/jrsteele09/go-vtiger/crmmodel"
	"github.com/jrsteele09/go-vtiger/transport"
)

var _ transport.Doer = (*FakeTransport)(nil)

// Reply is one scripted answer.
type Reply struct {
	Status int
	Body   string
	Err    error
}

// OK returns a 200 reply with body.
func OK(body string) Reply {
	return Reply{Status: http.StatusOK, Body: body}
}

// Success returns a 200 reply wrapping result in a success envelope.
func Success(result any) Reply {
	raw, err := json.Marshal(result)
	if err != nil {
		panic(err)
	}
	return OK(fmt.Sprintf(`{"success":true,"result":%s}`, raw))
}

// Failure returns a 200 reply with a success == false envelope.
func Failure(code, message string) Reply {
	return OK(fmt.Sprintf(`{"success":false,"error":{"code":%q,"message":%q}}`, code, message))
}

// Status returns a reply with the given status code and body.
func Status(code int, body string) Reply {
	return Reply{Status: code, Body: body}
}

// Error returns a reply that fails to send.
func Error(err error) Reply {
	return Reply{Err: err}
}

// FakeTransport answers requests from per operation queues and records every request.
type FakeTransport struct {
	queues   map[crmmodel.OperationType][]Reply
	always   map[crmmodel.OperationType]Reply
	requests []transport.Request
	lock     sync.Mutex
}

// New creates an empty FakeTransport.
func New() *FakeTransport {
	return &FakeTransport{
		queues: make(map[crmmodel.OperationType][]Reply),
		always: make(map[crmmodel.OperationType]Reply),
	}
}

// On queues replies for op, answered in order.
func (f *FakeTransport) On(op crmmodel.OperationType, replies ...Reply) *FakeTransport {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.queues[op] = append(f.queues[op], replies...)
	return f
}

// Always answers op with reply once its queue is empty.
func (f *FakeTransport) Always(op crmmodel.OperationType, reply Reply) *FakeTransport {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.always[op] = reply
	return f
}

// Do implements transport.Doer.
func (f *FakeTransport) Do(ctx context.Context, req transport.Request) (*transport.Response, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, crmmodel.NewError(crmmodel.ErrTransport, req.Operation(), "", "send request", err)
	}

	f.requests = append(f.requests, req)
	op := req.Operation()

	var reply Reply
	if queue := f.queues[op]; len(queue) > 0 {
		reply = queue[0]
		f.queues[op] = queue[1:]
	} else if r, ok := f.always[op]; ok {
		reply = r
	} else {
		return nil, crmmodel.NewError(crmmodel.ErrTransport, op, "", "no scripted reply", nil)
	}

	if reply.Err != nil {
		return nil, crmmodel.NewError(crmmodel.ErrTransport, op, "", "send request", reply.Err)
	}
	return &transport.Response{StatusCode: reply.Status, Body: []byte(reply.Body)}, nil
}

// Requests returns a copy of every request received.
func (f *FakeTransport) Requests() []transport.Request {
	f.lock.Lock()
	defer f.lock.Unlock()
	out := make([]transport.Request, len(f.requests))
	copy(out, f.requests)
	return out
}

// Calls counts requests for op.
func (f *FakeTransport) Calls(op crmmodel.OperationType) int {
	f.lock.Lock()
	defer f.lock.Unlock()
	n := 0
	for _, r := range f.requests {
		if r.Operation() == op {
			n++
		}
	}
	return n
}

// Total counts every request.
func (f *FakeTransport) Total() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return len(f.requests)
}

// Last returns the most recent request for op.
func (f *FakeTransport) Last(op crmmodel.OperationType) (transport.Request, bool) {
	f.lock.Lock()
	defer f.lock.Unlock()
	for i := len(f.requests) - 1; i >= 0; i-- {
		if f.requests[i].Operation() == op {
			return f.requests[i], true
		}
	}
	return transport.Request{}, false
}

// Reset clears requests and scripts.
func (f *FakeTransport) Reset() {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.queues = make(map[crmmodel.OperationType][]Reply)
	f.always = make(map[crmmodel.OperationType]Reply)
	f.requests = nil
}
