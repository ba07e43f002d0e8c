package request

// RegisterDomain is the payload for attaching a hostname to an instance.
type RegisterDomain struct {
	Hostname string `json:"hostname" validate:"required,fqdn"`
}
