// Package websocket carries a device byte stream over websocket binary
// frames, e.g. from a BLE or serial bridge on another host.
package websocket

import (
	"io"
	"net/url"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"
)

// Dial connects to a bridge at rawURL (ws:// or wss://). The returned
// stream can be wrapped by comm.NewPort.
func Dial(rawURL string) (io.ReadWriteCloser, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	origin := "http://" + u.Host
	if u.Scheme == "wss" {
		origin = "https://" + u.Host
	}
	conn, err := websocket.Dial(rawURL, "", origin)
	if err != nil {
		return nil, err
	}
	conn.PayloadType = websocket.BinaryFrame
	return conn, nil
}

// Bridge exposes rw to a single websocket client at a time. Bytes read
// from rw are sent to the client and bytes from the client are written
// to rw.
func Bridge(rw io.ReadWriter) websocket.Handler {
	return func(conn *websocket.Conn) {
		conn.PayloadType = websocket.BinaryFrame
		glog.Infof("bridge: client %s connected", conn.Request().RemoteAddr)
		done := make(chan struct{})
		go func() {
			defer close(done)
			if _, err := io.Copy(rw, conn); err != nil {
				glog.V(2).Infof("bridge: upstream closed: %v", err)
			}
		}()
		go func() {
			if _, err := io.Copy(conn, rw); err != nil {
				glog.V(2).Infof("bridge: downstream closed: %v", err)
			}
			conn.Close()
		}()
		<-done
		glog.Infof("bridge: client %s disconnected", conn.Request().RemoteAddr)
	}
}
