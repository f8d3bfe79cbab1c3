// Package comm provides L0 byte stream support.
package comm

// L0 streams are the raw byte streams between the sensor MCU and its
// peers: the debug/host UART, the BLE serial bridge (BMD350) and the
// Wi-Fi bridge (ESP8285). None of them carry framing of their own.
//
// A Framer accumulates bytes polled from a ByteSource into a fixed
// capacity buffer until a stop byte (UART) or a full buffer (BLE) marks
// the end of a message. Nothing blocks: Fill consumes what is queued and
// returns. A partial frame left behind by a sender that stopped mid
// message is discarded after a reception timeout.
//
// Port turns a blocking io.ReadWriter into a ByteSource by reading it from
// a background goroutine into a bounded queue.
//
// Producer: sensor MCU / bridges
// Consumer: Framer -> Dispatcher -> frame handlers
