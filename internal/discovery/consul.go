package discovery

import (
	"fmt"
	"strconv"

	"github.com/hashicorp/consul/api"
)

type ConsulClient struct {
	client *api.Client
}

func NewConsulClient(address string) (*ConsulClient, error) {
	config := api.DefaultConfig()
	config.Address = address

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create consul client: %w", err)
	}

	return &ConsulClient{client: client}, nil
}

// RegisterService advertises the machine controller with a /health check.
// Tags carry the station groups this instance drives so the fleet
// dashboard can map orders to physical machines.
func (c *ConsulClient) RegisterService(serviceID, serviceName, port string, tags []string) error {
	p, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("invalid service port %q: %w", port, err)
	}

	registration := &api.AgentServiceRegistration{
		ID:   serviceID,
		Name: serviceName,
		Port: p,
		Tags: tags,
		Check: &api.AgentServiceCheck{
			HTTP:                           fmt.Sprintf("http://%s:%s/health", serviceID, port),
			Interval:                       "10s",
			Timeout:                        "5s",
			DeregisterCriticalServiceAfter: "30s",
		},
	}

	return c.client.Agent().ServiceRegister(registration)
}

func (c *ConsulClient) DeregisterService(serviceID string) error {
	return c.client.Agent().ServiceDeregister(serviceID)
}
