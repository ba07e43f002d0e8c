package activity

import (
	"context"

	"github.com/edvin/vpshost/internal/cloud"
	"github.com/edvin/vpshost/internal/model"
)

// Cloud contains activities that call the cloud provider's instance API.
type Cloud struct {
	client *cloud.Client
	region string
	image  string
}

// NewCloud creates a new Cloud activity struct.
func NewCloud(client *cloud.Client, region, image string) *Cloud {
	return &Cloud{client: client, region: region, image: image}
}

// CloudInstanceResult is the subset of the provider descriptor the
// workflows act on.
type CloudInstanceResult struct {
	ProviderID string `json:"provider_id"`
	Status     string `json:"status"`
	IPAddress  string `json:"ip_address"`
}

// CreateCloudInstanceParams holds parameters for CreateCloudInstance.
type CreateCloudInstanceParams struct {
	Name string `json:"name"`
	Plan string `json:"plan"`
	Tag  string `json:"tag"`
}

// CreateCloudInstance requests a machine sized for the plan, tagged so the
// customer can be re-associated with it even if the provider id is never
// persisted.
func (a *Cloud) CreateCloudInstance(ctx context.Context, params CreateCloudInstanceParams) (*CloudInstanceResult, error) {
	plan, err := model.PlanByName(params.Plan)
	if err != nil {
		return nil, err
	}

	m, err := a.client.Create(ctx, cloud.CreateRequest{
		Name:     params.Name,
		Region:   a.region,
		Image:    a.image,
		CPUs:     plan.CPUs,
		MemoryMB: plan.MemoryMB,
		DiskGB:   plan.DiskGB,
		Tags:     []string{params.Tag},
	})
	if err != nil {
		return nil, err
	}

	return &CloudInstanceResult{
		ProviderID: m.ID,
		Status:     m.Status,
		IPAddress:  m.PublicIPv4(),
	}, nil
}

// GetCloudInstance fetches the current status and address of a machine.
func (a *Cloud) GetCloudInstance(ctx context.Context, providerID string) (*CloudInstanceResult, error) {
	m, err := a.client.Get(ctx, providerID)
	if err != nil {
		return nil, err
	}
	return &CloudInstanceResult{
		ProviderID: m.ID,
		Status:     m.Status,
		IPAddress:  m.PublicIPv4(),
	}, nil
}

// DeleteCloudInstance destroys a machine at the provider.
func (a *Cloud) DeleteCloudInstance(ctx context.Context, providerID string) error {
	return a.client.Delete(ctx, providerID)
}

// FindCloudInstanceByTag resolves a machine by the customer tag. This is
// the degraded recovery path for rows whose provider id was never
// persisted; "" means no machine carries the tag.
func (a *Cloud) FindCloudInstanceByTag(ctx context.Context, tag string) (string, error) {
	machines, err := a.client.ListByTag(ctx, tag)
	if err != nil {
		return "", err
	}
	for _, m := range machines {
		if m.HasTag(tag) {
			return m.ID, nil
		}
	}
	return "", nil
}
