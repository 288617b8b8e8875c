package rpcsurface

import (
	"crypto/rand"
	"io"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"
)

// SendProgress is the websocket.Handler registered at /progress: one
// connection subscribes for the life of the socket and receives every
// broadcast ProgressMessage as JSON, the same random-name
// subscribe/unsubscribe shape as service.go's own SendProgress.
func (s *Service) SendProgress(ws *websocket.Conn) {
	b := make([]byte, 10)
	if n, err := io.ReadFull(rand.Reader, b); n != len(b) || err != nil {
		glog.Errorf("rpcsurface: cannot generate subscriber id: %v", err)
		return
	}
	id := string(b)

	c := s.subscribe(id)
	defer s.unsubscribe(id)

	for msg := range c {
		if err := websocket.JSON.Send(ws, *msg); err != nil {
			glog.Infof("rpcsurface: progress send failed, dropping subscriber: %v", err)
			return
		}
	}
}
