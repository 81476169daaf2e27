package config

const (
	DefaultControlSocket = "/var/run/wgagentd.sock"
	DefaultHTTPAddr      = "127.0.0.1:8080"
	DefaultLogLevel      = "info"
	DefaultInterface     = "wg0"
	DefaultMTU           = 1280
	DefaultKeepalive     = 25

	minMTU = 1280
	maxMTU = 1500
)
