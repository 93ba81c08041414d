package gpubroker

// Msg is the closed union of messages the broker sends upstream to its
// embedder, received from the channel returned by New.
type Msg interface {
	isMsg()
}

// MsgExit announces that the broker is shutting down. It is sent before
// the backend is closed and before the exit ack fires, so the embedder
// can stop routing producer traffic first.
type MsgExit struct{}

func (MsgExit) isMsg() {}
