package gpubroker

import (
	"github.com/gogpu/gpubroker/backend"
	"github.com/gogpu/gpubroker/id"
)

// Response is the closed union of success payloads for reply-bearing
// requests.
type Response interface {
	isResponse()
}

// AdapterResponse answers a RequestAdapter. Channel is a broker handle
// bound to the same mailbox, so the producer can issue follow-up
// requests against the granted adapter.
type AdapterResponse struct {
	Name      string
	AdapterID id.AdapterID
	Channel   *Broker
}

// DeviceResponse answers a RequestDevice.
type DeviceResponse struct {
	DeviceID   id.DeviceID
	QueueID    id.QueueID
	Descriptor backend.DeviceDescriptor
}

func (*AdapterResponse) isResponse() {}
func (*DeviceResponse) isResponse()  {}

// ResponseResult is what a reply channel receives: a success payload or
// an error, never both.
type ResponseResult struct {
	Response Response
	Err      error
}
