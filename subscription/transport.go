package subscription

// Handlers are the callbacks a transport delivers for one subscription.
// Any of them may be called from a transport-owned goroutine, including
// synchronously from within SubscribeWithResume.
type Handlers struct {
	// OnEvent delivers one event body. eventID is the resume token, if any.
	OnEvent func(eventID string, headers map[string]string, body []byte)
	// OnEnd reports that the server closed the stream.
	OnEnd func(statusCode int, headers map[string]string, body []byte)
	// OnError reports a transport failure.
	OnError func(err error)
}

// Handle is an active transport subscription.
type Handle interface {
	// End tears the subscription down. End is idempotent and may be called
	// from within a handler. A callback racing with End may still arrive;
	// Subscription drops it.
	End()
}

// Transport opens resumable subscriptions.
type Transport interface {
	SubscribeWithResume(path string, handlers Handlers) Handle
}

// Completion is called at most once with the outcome of a Subscribe call.
type Completion func(err error)

// Delegate receives the ongoing stream of a subscription.
type Delegate interface {
	OnEvent(body []byte)
	OnError(err error)
}
