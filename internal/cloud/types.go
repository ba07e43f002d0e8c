package cloud

// Provider-side machine statuses. "new" means the machine descriptor exists
// but the network interface may not be attached yet.
const (
	MachineStatusNew     = "new"
	MachineStatusActive  = "active"
	MachineStatusOff     = "off"
	MachineStatusDeleted = "deleted"
)

// CreateRequest describes the machine to create.
type CreateRequest struct {
	Name     string   `json:"name"`
	Region   string   `json:"region"`
	Image    string   `json:"image"`
	CPUs     int      `json:"cpus"`
	MemoryMB int      `json:"memory_mb"`
	DiskGB   int      `json:"disk_gb"`
	Tags     []string `json:"tags"`
}

// Machine is the provider's instance descriptor.
type Machine struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Status   string    `json:"status"`
	Region   string    `json:"region"`
	Tags     []string  `json:"tags"`
	Networks []Network `json:"networks"`
}

// Network is one address attached to a machine.
type Network struct {
	Address string `json:"address"`
	Family  int    `json:"family"`
	Type    string `json:"type"`
}

// PublicIPv4 returns the machine's public IPv4 address, or "" when the
// network interface has not been attached yet.
func (m *Machine) PublicIPv4() string {
	for _, n := range m.Networks {
		if n.Family == 4 && n.Type == "public" {
			return n.Address
		}
	}
	return ""
}

// HasTag reports whether the machine carries the given provisioning tag.
func (m *Machine) HasTag(tag string) bool {
	for _, t := range m.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
