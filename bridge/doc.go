// Package bridge is the boundary surface of a filter list library: the six
// operations every adapter is built on.
//
//	DefaultConfiguration() -> Envelope(Buffer)
//	Init(config)           -> Envelope(HandlePointer | error)
//	Call(handle, method, args) -> Envelope(Buffer)
//	ReleaseEnvelope(envelope)
//	DestroyHandle(handle)
//	Constants()            -> Constants, by value
//
// Every envelope returned here is owned by the caller and must be released
// exactly once. Every handle must be destroyed exactly once. Apart from Close,
// which destroys the instances still alive, the bridge never releases anything
// on the caller's behalf.
//
// The C library in cmd/libflm, the host package and the remote adapter are
// thin translations of this surface.
package bridge
