package config

// MARK: setDefaults
// Applies default values to server and per-network settings, mirroring
// the fallback conventions used throughout the rest of the stack.
func (c *Config) setDefaults() {
	if c.Server.ControlSocket == "" {
		c.Server.ControlSocket = DefaultControlSocket
	}
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = DefaultHTTPAddr
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}

	for name, network := range c.Networks {
		if network.Interface == "" {
			network.Interface = DefaultInterface
		}
		if network.MTU == 0 {
			network.MTU = DefaultMTU
		}
		for i := range network.Peers {
			peer := &network.Peers[i]
			if peer.PersistentKeepaliveInt > 0 {
				peer.Persistent = true
			} else if peer.Persistent && peer.PersistentKeepaliveInt == 0 {
				peer.PersistentKeepaliveInt = DefaultKeepalive
			}
		}
		c.Networks[name] = network
	}
}
