package command

import (
	"fmt"

	"github.com/pixil98/go-errors"

	"github.com/pixil98/go-gamesync/internal/save"
	"github.com/pixil98/go-gamesync/internal/session"
)

type SessionConfig struct {
	// Username and Password log in on startup when no stored session can be
	// restored.
	Username         string `json:"username"`
	Password         string `json:"password"`
	PositionInterval string `json:"position_interval"`
	PingInterval     string `json:"ping_interval"`
	SaveCooldown     string `json:"save_cooldown"`
	SaveTimeout      string `json:"save_timeout"`
}

func (c *SessionConfig) Validate() error {
	el := errors.NewErrorList()

	if (c.Username == "") != (c.Password == "") {
		el.Add(fmt.Errorf("session: username and password must be set together"))
	}
	durations := []struct{ name, value string }{
		{"position_interval", c.PositionInterval},
		{"ping_interval", c.PingInterval},
		{"save_cooldown", c.SaveCooldown},
		{"save_timeout", c.SaveTimeout},
	}
	for _, d := range durations {
		if _, err := parseOptionalDuration("session: "+d.name, d.value); err != nil {
			el.Add(err)
		}
	}

	return el.Err()
}

func (c *SessionConfig) SessionOpts() ([]session.SessionOpt, error) {
	var opts []session.SessionOpt
	var saveOpts []save.CoordinatorOpt

	d, err := parseOptionalDuration("position_interval", c.PositionInterval)
	if err != nil {
		return nil, err
	}
	if d > 0 {
		opts = append(opts, session.WithPositionInterval(d))
	}

	if d, err = parseOptionalDuration("ping_interval", c.PingInterval); err != nil {
		return nil, err
	}
	if d > 0 {
		opts = append(opts, session.WithPingInterval(d))
	}

	if d, err = parseOptionalDuration("save_cooldown", c.SaveCooldown); err != nil {
		return nil, err
	}
	if d > 0 {
		saveOpts = append(saveOpts, save.WithCooldown(d))
	}

	if d, err = parseOptionalDuration("save_timeout", c.SaveTimeout); err != nil {
		return nil, err
	}
	if d > 0 {
		saveOpts = append(saveOpts, save.WithTimeout(d))
	}

	if len(saveOpts) > 0 {
		opts = append(opts, session.WithSaveOpts(saveOpts...))
	}
	return opts, nil
}
