package config

// MARK: Config
type Config struct {
	Server   ServerConfig             `yaml:"server"`
	Log      LogConfig                `yaml:"log"`
	Networks map[string]NetworkConfig `yaml:"networks"`
}

// MARK: ServerConfig
type ServerConfig struct {
	ControlSocket string `yaml:"control_socket"`
	HTTPAddr      string `yaml:"http_addr"`
}

// MARK: LogConfig
type LogConfig struct {
	Level string `yaml:"level"`
}

// MARK: NetworkConfig
// Describes one named WireGuard network: its interface, local identity,
// and the static set of peers it dials or accepts.
type NetworkConfig struct {
	Interface      string       `yaml:"interface"`
	MTU            int          `yaml:"mtu"`
	ListenPort     int          `yaml:"listen_port"`
	PrivateKeyPath string       `yaml:"private_key_path"`
	Address        string       `yaml:"address"`
	DNS            []string     `yaml:"dns"`
	Peers          []PeerConfig `yaml:"peers"`
}

// MARK: PeerConfig
type PeerConfig struct {
	Name       string   `yaml:"name"`
	PublicKey  string   `yaml:"public_key"`
	Endpoint   string   `yaml:"endpoint"`
	AllowedIPs []string `yaml:"allowed_ips"`
	// Persistent distinguishes an explicit persistent_keepalive_secs: 0
	// (keepalive disabled, a valid setting per spec) from the field
	// being left unset in YAML, which is otherwise indistinguishable —
	// both unmarshal to the zero value. Only set this true to ask for
	// the default keepalive without naming a specific interval.
	Persistent             bool   `yaml:"persistent"`
	PersistentKeepaliveInt int    `yaml:"persistent_keepalive_secs"`
	PresharedKey           string `yaml:"preshared_key"`
}
