// Package msgs defines the messages a device exchanges with its peers.
//
// Every message travels wrapped in a Typed envelope, so a subscriber can
// decode any of them from one topic.
//
// Producer: device runtime
// Consumer: gateways, monitors
package msgs
