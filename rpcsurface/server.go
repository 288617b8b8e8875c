package rpcsurface

import (
	"net/http"

	gorillarpc "github.com/gorilla/rpc/v2"
	"github.com/gorilla/rpc/v2/json2"
	"golang.org/x/net/websocket"
)

// NewHTTPHandler wires Service behind the same three routes
// cmds/rombaserver/main.go registers: static files under webDir at
// "/", JSON-RPC under "/jsonrpc/", and the progress websocket under
// "/progress".
func NewHTTPHandler(s *Service, webDir string) http.Handler {
	rpcServer := gorillarpc.NewServer()
	rpcServer.RegisterCodec(json2.NewCodec(), "application/json")
	if err := rpcServer.RegisterService(s, ""); err != nil {
		panic(err)
	}

	mux := http.NewServeMux()
	if webDir != "" {
		mux.Handle("/", http.StripPrefix("/", http.FileServer(http.Dir(webDir))))
	}
	mux.Handle("/jsonrpc/", rpcServer)
	mux.Handle("/progress", websocket.Handler(s.SendProgress))
	return mux
}
