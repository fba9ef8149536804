package testhelpers

import (
	"context"
	"time"

	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/resinkit/resinkit-go/gateway"
)

const (
	flinkImage  = "flink:1.20-scala_2.12-java17"
	gatewayPort = "8083/tcp"
)

// startup runs a local cluster and the sql gateway in one container.
const startup = `bin/start-cluster.sh && exec bin/sql-gateway.sh start-foreground \
	-Dsql-gateway.endpoint.rest.address=0.0.0.0 \
	-Dsql-gateway.endpoint.rest.bind-address=0.0.0.0 \
	-Dsql-gateway.endpoint.rest.port=8083`

type FlinkContainer struct {
	tc.Container
	URL    string
	Client *gateway.Client
}

// NewFlinkContainer starts a flink sql gateway and returns a client for it.
func NewFlinkContainer(ctx context.Context, opts ...gateway.Option) (*FlinkContainer, error) {
	ctr, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ProviderType: GetContainerProvider(),
		ContainerRequest: tc.ContainerRequest{
			Image:        flinkImage,
			Entrypoint:   []string{"/bin/bash", "-c", startup},
			ExposedPorts: []string{gatewayPort},
			Env: map[string]string{
				"FLINK_PROPERTIES": "taskmanager.numberOfTaskSlots: 4",
			},
			WaitingFor: wait.ForHTTP("/v1/info").
				WithPort(gatewayPort).
				WithStartupTimeout(3 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		return nil, err
	}

	url, err := ctr.PortEndpoint(ctx, gatewayPort, "http")
	if err != nil {
		return nil, err
	}

	client, err := gateway.NewClient(url, opts...)
	if err != nil {
		return nil, err
	}

	return &FlinkContainer{
		Container: ctr,
		URL:       url,
		Client:    client,
	}, nil
}
