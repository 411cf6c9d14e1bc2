package packetconn

// Handler receives the events of a Client.
//
// OnMessage and an unexpected OnDisconnected run on the listener goroutine;
// a handler may call Send or Stop from them but must not call Wait.
type Handler interface {
	// OnMessage is invoked once per successfully decoded inbound packet
	// with all of its elements, in wire order.
	OnMessage(elements []Element)
	// OnDisconnected is invoked exactly once per connection, whether the
	// client was stopped or the connection was lost.
	OnDisconnected()
	// OnUnableToConnect is invoked when Connect fails to dial.
	OnUnableToConnect()
}

// HandlerFuncs adapts plain functions to a Handler. Nil fields are ignored.
type HandlerFuncs struct {
	Message         func(elements []Element)
	Disconnected    func()
	UnableToConnect func()
}

var _ Handler = HandlerFuncs{}

func (h HandlerFuncs) OnMessage(elements []Element) {
	if h.Message != nil {
		h.Message(elements)
	}
}

func (h HandlerFuncs) OnDisconnected() {
	if h.Disconnected != nil {
		h.Disconnected()
	}
}

func (h HandlerFuncs) OnUnableToConnect() {
	if h.UnableToConnect != nil {
		h.UnableToConnect()
	}
}
