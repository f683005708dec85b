package health

import "context"

const Version = "1.0.0"

// anything that can check its connection, usually *pgxpool.Pool
type Pinger interface {
	Ping(ctx context.Context) error
}

// Response represents the health check response
type Response struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version,omitempty"`
}

type PingResponse struct {
	Message string `json:"message"`
}
