package tunnel

// TUNDevice is the small surface Device needs from a TUN interface:
// whole-packet reads/writes and the kernel-assigned name.
type TUNDevice interface {
	Read(buf []byte) (int, error)
	Write(buf []byte) (int, error)
	Name() string
	Close() error
}

// OS is the platform capability set Tunnel consumes to stand up and
// tear down everything around the TUN device itself (addresses,
// routes, DNS, interface state) and the privilege check it runs first.
type OS interface {
	CreateTUN(name string, mtu int) (TUNDevice, error)
	DestroyInterface(name string) error
	SetInterfaceUp(name string) error
	SetMTU(name string, mtu int) error
	SetAddress(name, cidr string) error
	AddRoutes(name string, cidrs []string) error
	RemoveRoutes(name string, cidrs []string) error
	ConfigureDNS(name string, servers []string) error
	RemoveDNS(name string) error
	CheckCapabilities() []string
}
