package websocket

type ConnectParams struct {
	Token string `form:"token"` // jwt for clients that cannot send the session cookie
}
