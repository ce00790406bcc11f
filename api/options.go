package api

import (
	"time"

	"github.com/netagent/netagent/core/scheduler"
	"github.com/netagent/netagent/core/sse"
	"github.com/netagent/netagent/core/state"
)

type Config struct {
	Asker          Asker
	Agents         func() []AgentInfo
	Scheduler      *scheduler.Scheduler
	Events         sse.Manager
	ApiKeys        []string
	WebhookToken   string
	RequestTimeout time.Duration
}

type Option func(*Config)

// WithTeam serves the supervisor and the agents of team.
func WithTeam(team *state.Team) Option {
	return func(c *Config) {
		c.Asker = team.Supervisor()
		c.Agents = func() []AgentInfo {
			infos := []AgentInfo{}
			for _, a := range team.Agents() {
				infos = append(infos, AgentInfo{
					Name:        a.Name(),
					Description: a.Description(),
					Actions:     a.Actions().Names(),
				})
			}
			return infos
		}
	}
}

func WithAsker(a Asker) Option {
	return func(c *Config) {
		c.Asker = a
	}
}

func WithScheduler(s *scheduler.Scheduler) Option {
	return func(c *Config) {
		c.Scheduler = s
	}
}

// WithEvents streams supervisor events on /api/events.
func WithEvents(m sse.Manager) Option {
	return func(c *Config) {
		c.Events = m
	}
}

func WithApiKeys(keys ...string) Option {
	return func(c *Config) {
		c.ApiKeys = append(c.ApiKeys, keys...)
	}
}

func WithWebhookToken(token string) Option {
	return func(c *Config) {
		c.WebhookToken = token
	}
}

func WithRequestTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.RequestTimeout = d
		}
	}
}

func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

func NewConfig(opts ...Option) *Config {
	c := &Config{
		RequestTimeout: 10 * time.Minute,
		Agents:         func() []AgentInfo { return []AgentInfo{} },
	}
	c.Apply(opts...)
	return c
}
