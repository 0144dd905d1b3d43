package cloud

import (
	"context"
	"path"

	"github.com/pkg/errors"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/compute/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/logging/v2"
	"google.golang.org/api/option"
	"gopkg.in/yaml.v2"

	"vodforge/internal/util"
)

// WorkerEnv is passed into each spawned worker container so it reaches the
// same queue, storage and catalog as the rest of the deployment.
type WorkerEnv struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

type gcp struct {
	computeService *compute.Service
	project        string
	zone           string
	group          string
	image          string
	bootDisk       string
	workerEnv      []WorkerEnv
}

type GCPConfig struct {
	Project string
	Zone    string
	Group   string

	// Image is the worker container image; BootDisk the COS image the VM
	// boots from.
	Image     string
	BootDisk  string
	WorkerEnv []WorkerEnv
}

func NewGCP(ctx context.Context, config GCPConfig) (Provider, error) {
	httpClient, err := google.DefaultClient(ctx, compute.CloudPlatformScope)

	if err != nil {
		return nil, errors.Wrap(err, "gcp http client")
	}

	creds, err := google.FindDefaultCredentials(ctx)

	if err != nil {
		return nil, errors.Wrap(err, "gcp credentials")
	}

	computeService, err := compute.NewService(ctx, option.WithHTTPClient(httpClient), option.WithCredentials(creds))

	if err != nil {
		return nil, errors.Wrap(err, "gcp compute service")
	}

	return &gcp{
		computeService: computeService,
		project:        config.Project,
		zone:           config.Zone,
		group:          config.Group,
		image:          config.Image,
		bootDisk:       config.BootDisk,
		workerEnv:      config.WorkerEnv,
	}, nil
}

func (g *gcp) Count(ctx context.Context) (int, error) {
	instances, err := g.Instances(ctx)

	if err != nil {
		return 0, errors.Wrap(err, "gcp group instances count")
	}

	count := 0

	for _, instance := range instances {
		switch instance.Status {
		case "PROVISIONING", "STAGING", "RUNNING", "REPAIRING":
			count++
		}
	}

	return count, nil
}

func (g *gcp) Instances(ctx context.Context) ([]*Instance, error) {
	resp, err := g.computeService.InstanceGroups.ListInstances(g.project, g.zone, g.group, nil).Context(ctx).Do()

	if err != nil {
		return nil, errors.Wrap(err, "gcp group instances list")
	}

	if resp.HTTPStatusCode != 200 {
		return nil, errors.Errorf("gcp group instances list bad http status code: %d", resp.HTTPStatusCode)
	}

	instances := make([]*Instance, len(resp.Items))

	for i, instance := range resp.Items {
		instances[i] = &Instance{
			Name:   instance.Instance,
			Status: instance.Status,
		}
	}

	return instances, nil
}

type containerDeclaration struct {
	Spec spec `yaml:"spec"`
}

type spec struct {
	Containers    []container `yaml:"containers"`
	RestartPolicy string      `yaml:"restartPolicy"`
}

type container struct {
	Name  string      `yaml:"name"`
	Image string      `yaml:"image"`
	Args  []string    `yaml:"args"`
	Env   []WorkerEnv `yaml:"env"`
	Stdin bool        `yaml:"stdin"`
	TTY   bool        `yaml:"tty"`
}

var logDriver = `#cloud-config

write_files:
  - path: /etc/docker/daemon.json
    content: '{"log-driver":"gcplogs"}'

runcmd:
  - systemctl start stackdriver-logging
  - systemctl restart docker`

func (g *gcp) AddInstance(ctx context.Context, namePrefix string, machineType string, preemptible bool) (string, error) {
	prefix := "projects/" + g.project
	instanceName := namePrefix + util.Random(4)

	declaration := containerDeclaration{
		Spec: spec{
			Containers: []container{
				{
					Name:  instanceName,
					Image: g.image,
					Args: []string{
						"worker",
					},
					Env:   g.workerEnv,
					Stdin: false,
					TTY:   false,
				},
			},
			RestartPolicy: "Always",
		},
	}

	containerYaml, _ := yaml.Marshal(declaration)

	instance := &compute.Instance{
		Name:        instanceName,
		MachineType: prefix + "/zones/" + g.zone + "/machineTypes/" + machineType,
		Disks: []*compute.AttachedDisk{
			{
				AutoDelete: true,
				Boot:       true,
				Type:       "PERSISTENT",
				DeviceName: instanceName,
				InitializeParams: &compute.AttachedDiskInitializeParams{
					SourceImage: g.bootDisk,
					DiskSizeGb:  10,
				},
			},
		},
		NetworkInterfaces: []*compute.NetworkInterface{
			{
				Network: prefix + "/global/networks/default",
				AccessConfigs: []*compute.AccessConfig{
					{
						NetworkTier: "STANDARD",
					},
				},
			},
		},
		ServiceAccounts: []*compute.ServiceAccount{
			{
				Email: "default",
				Scopes: []string{
					compute.ComputeScope,
					compute.DevstorageFullControlScope,
					logging.LoggingWriteScope,
				},
			},
		},
		Metadata: &compute.Metadata{
			Items: []*compute.MetadataItems{
				{
					Key:   "gce-container-declaration",
					Value: googleapi.String(string(containerYaml)),
				},
				{
					Key:   "user-data",
					Value: googleapi.String(logDriver),
				},
			},
		},
		Tags: &compute.Tags{
			Items: []string{"vodforge", "video", "worker", "ffmpeg"},
		},
		Scheduling: &compute.Scheduling{
			AutomaticRestart: googleapi.Bool(false),
			Preemptible:      preemptible,
		},
	}

	resp, err := g.computeService.Instances.Insert(g.project, g.zone, instance).Context(ctx).Do()

	if err != nil {
		return "", errors.Wrap(err, "gcp add instance")
	}

	if resp.HTTPStatusCode != 200 {
		return "", errors.Errorf("gcp add instance bad http status code: %d", resp.HTTPStatusCode)
	}

	resp, err = g.computeService.InstanceGroups.AddInstances(g.project, g.zone, g.group, &compute.InstanceGroupsAddInstancesRequest{
		Instances: []*compute.InstanceReference{
			{
				Instance: "https://www.googleapis.com/compute/v1/projects/" + g.project + "/zones/" + g.zone + "/instances/" + instance.Name,
			},
		},
	}).Context(ctx).Do()

	if err != nil {
		return "", errors.Wrap(err, "gcp add instance to group")
	}

	if resp.HTTPStatusCode != 200 {
		return "", errors.Errorf("gcp add instance to group bad http status code: %d", resp.HTTPStatusCode)
	}

	return instance.Name, nil
}

func (g *gcp) DeleteInstance(ctx context.Context, instance string) error {
	resp, err := g.computeService.Instances.Delete(g.project, g.zone, instance).Context(ctx).Do()

	if err != nil {
		return errors.Wrap(err, "gcp delete instance")
	}

	if resp.HTTPStatusCode != 200 {
		return errors.Errorf("gcp delete instance bad http status code: %d", resp.HTTPStatusCode)
	}

	return nil
}

func (g *gcp) DeleteAll(ctx context.Context) error {
	resp, err := g.computeService.InstanceGroups.ListInstances(g.project, g.zone, g.group, nil).Context(ctx).Do()

	if err != nil {
		return errors.Wrap(err, "gcp list group instances")
	}

	if resp.HTTPStatusCode != 200 {
		return errors.Errorf("gcp list group instances bad http status code: %d", resp.HTTPStatusCode)
	}

	for _, instance := range resp.Items {
		if err = g.DeleteInstance(ctx, path.Base(instance.Instance)); err != nil {
			return err
		}
	}

	return nil
}
