package config

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/architeacher/svc-stomp-worker/pkg/queue"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported queue definitions format")
	ErrNoQueues          = errors.New("no queues defined")

	queueNameRegexp = regexp.MustCompile(`^[A-Za-z]+$`)
)

type (
	// QueuesFile is the on-disk list of broker connections, one per queue name.
	QueuesFile struct {
		Queues []QueueDefinition `yaml:"queues" toml:"queues"`
	}

	QueueDefinition struct {
		Name          string               `yaml:"name" toml:"name" json:"name"`
		ClientID      string               `yaml:"clientId" toml:"clientId" json:"client_id"`
		Brokers       []string             `yaml:"brokers" toml:"brokers" json:"brokers"`
		Randomize     bool                 `yaml:"randomize" toml:"randomize" json:"randomize"`
		Destination   string               `yaml:"destination" toml:"destination" json:"destination"`
		Login         string               `yaml:"login" toml:"login" json:"login,omitempty"`
		Passcode      string               `yaml:"passcode" toml:"passcode" json:"-"`
		NackOnRelease bool                 `yaml:"nackOnRelease" toml:"nackOnRelease" json:"nack_on_release"`
		Heartbeat     *HeartbeatDefinition `yaml:"heartbeat" toml:"heartbeat" json:"heartbeat,omitempty"`
		Timeout       *TimeoutDefinition   `yaml:"timeout" toml:"timeout" json:"timeout,omitempty"`
	}

	// HeartbeatDefinition holds intervals in milliseconds.
	HeartbeatDefinition struct {
		Send      int                  `yaml:"send" toml:"send" json:"send"`
		Receive   int                  `yaml:"receive" toml:"receive" json:"receive"`
		Observers []ObserverDefinition `yaml:"observers" toml:"observers" json:"observers"`
	}

	ObserverDefinition struct {
		Strategy string `yaml:"strategy" toml:"strategy" json:"strategy"`
		Factory  string `yaml:"factory" toml:"factory" json:"factory,omitempty"`
	}

	// TimeoutDefinition holds timeouts in milliseconds. Missing values keep the defaults.
	TimeoutDefinition struct {
		Read  *int `yaml:"read" toml:"read" json:"read,omitempty"`
		Write *int `yaml:"write" toml:"write" json:"write,omitempty"`
	}

	// Credentials are applied to queues that do not declare a login.
	Credentials struct {
		Login    string
		Passcode string
	}
)

// LoadQueues reads and validates the queue definitions file.
func LoadQueues(fs afero.Fs, path string) ([]QueueDefinition, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read queue definitions %s: %w", path, err)
	}

	var file QueuesFile

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)

		if err := decoder.Decode(&file); err != nil {
			return nil, fmt.Errorf("failed to parse queue definitions %s: %w", path, err)
		}
	case ".toml":
		decoder := toml.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()

		if err := decoder.Decode(&file); err != nil {
			return nil, fmt.Errorf("failed to parse queue definitions %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	if err := validateQueues(file.Queues); err != nil {
		return nil, fmt.Errorf("invalid queue definitions %s: %w", path, err)
	}

	return file.Queues, nil
}

func validateQueues(queues []QueueDefinition) error {
	if len(queues) == 0 {
		return ErrNoQueues
	}

	seen := make(map[string]struct{}, len(queues))

	for _, q := range queues {
		if !queueNameRegexp.MatchString(q.Name) {
			return fmt.Errorf("queue name %q must contain letters only", q.Name)
		}

		if _, ok := seen[q.Name]; ok {
			return fmt.Errorf("queue %q is defined more than once", q.Name)
		}

		seen[q.Name] = struct{}{}
	}

	return nil
}

// Build validates the definition and turns it into a connection configuration.
func (d QueueDefinition) Build(fallback Credentials) (queue.Config, error) {
	opts := []queue.ConfigOption{
		queue.WithRandomize(d.Randomize),
		queue.WithNackOnRelease(d.NackOnRelease),
	}

	switch {
	case d.Login != "":
		opts = append(opts, queue.WithLogin(d.Login, d.Passcode))
	case fallback.Login != "":
		opts = append(opts, queue.WithLogin(fallback.Login, fallback.Passcode))
	}

	if d.Heartbeat != nil {
		hb := queue.Heartbeat{
			Send:    time.Duration(d.Heartbeat.Send) * time.Millisecond,
			Receive: time.Duration(d.Heartbeat.Receive) * time.Millisecond,
		}

		for _, o := range d.Heartbeat.Observers {
			hb.Observers = append(hb.Observers, queue.ObserverSpec{Strategy: o.Strategy, Factory: o.Factory})
		}

		opts = append(opts, queue.WithHeartbeat(hb))
	}

	if d.Timeout != nil {
		timeout := queue.Timeout{Read: 1500 * time.Millisecond}

		if d.Timeout.Read != nil {
			timeout.Read = time.Duration(*d.Timeout.Read) * time.Millisecond
		}

		if d.Timeout.Write != nil {
			timeout.Write = time.Duration(*d.Timeout.Write) * time.Millisecond
		}

		opts = append(opts, queue.WithTimeout(timeout))
	}

	cfg, err := queue.NewConfig(d.ClientID, d.Brokers, d.Destination, opts...)
	if err != nil {
		return queue.Config{}, fmt.Errorf("queue %q: %w", d.Name, err)
	}

	return cfg, nil
}
