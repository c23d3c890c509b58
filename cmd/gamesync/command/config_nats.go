package command

import (
	"fmt"

	"github.com/pixil98/go-errors"

	"github.com/pixil98/go-gamesync/internal/messaging"
)

type NatsConfig struct {
	Enabled       bool   `json:"enabled"`
	Host          string `json:"host"`
	Port          int    `json:"port"`
	StartTimeout  string `json:"start_timeout"`
	SubjectPrefix string `json:"subject_prefix"`
}

func (c *NatsConfig) Validate() error {
	el := errors.NewErrorList()

	if _, err := parseOptionalDuration("nats: start_timeout", c.StartTimeout); err != nil {
		el.Add(err)
	}
	if c.Port < -1 || c.Port > 65535 {
		el.Add(fmt.Errorf("nats: port %d out of range", c.Port))
	}

	return el.Err()
}

func (c *NatsConfig) BuildNatsServer() (*messaging.NatsServer, error) {
	var opts []messaging.NatsServerOpt

	d, err := parseOptionalDuration("start_timeout", c.StartTimeout)
	if err != nil {
		return nil, err
	}
	if d > 0 {
		opts = append(opts, messaging.WithStartTimeout(d))
	}
	if c.Host != "" {
		opts = append(opts, messaging.WithHost(c.Host))
	}
	if c.Port != 0 {
		opts = append(opts, messaging.WithPort(c.Port))
	}

	return messaging.NewNatsServer(opts...)
}

func (c *NatsConfig) BridgeOpts() []messaging.BridgeOpt {
	if c.SubjectPrefix == "" {
		return nil
	}
	return []messaging.BridgeOpt{messaging.WithSubjectPrefix(c.SubjectPrefix)}
}
