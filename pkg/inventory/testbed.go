// Package inventory reads pyATS style testbed files describing the network
// devices the agents can reach.
package inventory

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"
)

var ErrDeviceNotFound = errors.New("device not found in testbed")

type Credential struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

type Connection struct {
	Protocol string `yaml:"protocol" json:"protocol"`
	IP       string `yaml:"ip" json:"ip"`
	Port     int    `yaml:"port,omitempty" json:"port,omitempty"`
}

type Device struct {
	OS          string                `yaml:"os" json:"os"`
	Type        string                `yaml:"type,omitempty" json:"type,omitempty"`
	Platform    string                `yaml:"platform,omitempty" json:"platform,omitempty"`
	Credentials map[string]Credential `yaml:"credentials,omitempty" json:"credentials,omitempty"`
	Connections map[string]Connection `yaml:"connections" json:"connections"`
}

type TestbedInfo struct {
	Name        string                `yaml:"name" json:"name"`
	Credentials map[string]Credential `yaml:"credentials,omitempty" json:"credentials,omitempty"`
}

type Testbed struct {
	Info    TestbedInfo       `yaml:"testbed" json:"testbed"`
	Devices map[string]Device `yaml:"devices" json:"devices"`

	raw []byte
}

// Endpoint is a device with its connection and credentials resolved.
type Endpoint struct {
	Name     string
	OS       string
	Type     string
	Protocol string
	Host     string
	Port     int
	Username string
	Password string
}

func (e Endpoint) Address() string {
	return fmt.Sprintf("%s:%d", e.Host, e.Port)
}

func Load(path string) (*Testbed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading testbed: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Testbed, error) {
	tb := &Testbed{}
	if err := yaml.Unmarshal(data, tb); err != nil {
		return nil, fmt.Errorf("parsing testbed: %w", err)
	}
	if len(tb.Devices) == 0 {
		return nil, errors.New("testbed has no devices")
	}
	tb.raw = data
	return tb, nil
}

// DeviceNames returns the device names in lexical order.
func (t *Testbed) DeviceNames() []string {
	names := make([]string, 0, len(t.Devices))
	for name := range t.Devices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Device resolves the named device. The "cli" connection is preferred, then
// "ssh", then any other in name order. Device credentials fall back to the
// testbed ones.
func (t *Testbed) Device(name string) (Endpoint, error) {
	d, ok := t.Devices[name]
	if !ok {
		return Endpoint{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, name)
	}

	conn, ok := d.connection()
	if !ok {
		return Endpoint{}, fmt.Errorf("device %s has no connection", name)
	}
	if conn.Port == 0 {
		conn.Port = 22
	}
	if conn.Protocol == "" {
		conn.Protocol = "ssh"
	}

	cred, ok := d.Credentials["default"]
	if !ok || cred.Username == "" {
		cred = t.Info.Credentials["default"]
	}

	return Endpoint{
		Name:     name,
		OS:       d.OS,
		Type:     d.Type,
		Protocol: conn.Protocol,
		Host:     conn.IP,
		Port:     conn.Port,
		Username: expandEnv(cred.Username),
		Password: expandEnv(cred.Password),
	}, nil
}

func (d Device) connection() (Connection, bool) {
	for _, key := range []string{"cli", "ssh"} {
		if c, ok := d.Connections[key]; ok {
			return c, true
		}
	}
	keys := make([]string, 0, len(d.Connections))
	for k := range d.Connections {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if d.Connections[k].IP != "" {
			return d.Connections[k], true
		}
	}
	return Connection{}, false
}

// YAML returns the testbed as it was read.
func (t *Testbed) YAML() string {
	if len(t.raw) > 0 {
		return string(t.raw)
	}
	out, err := yaml.Marshal(t)
	if err != nil {
		return ""
	}
	return string(out)
}

// RedactedYAML renders the testbed with every password masked.
func (t *Testbed) RedactedYAML() (string, error) {
	masked := Testbed{
		Info: TestbedInfo{
			Name:        t.Info.Name,
			Credentials: redact(t.Info.Credentials),
		},
		Devices: make(map[string]Device, len(t.Devices)),
	}
	for name, d := range t.Devices {
		d.Credentials = redact(d.Credentials)
		masked.Devices[name] = d
	}
	out, err := yaml.Marshal(&masked)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func redact(creds map[string]Credential) map[string]Credential {
	if len(creds) == 0 {
		return nil
	}
	out := make(map[string]Credential, len(creds))
	for k, c := range creds {
		if c.Password != "" {
			c.Password = "********"
		}
		out[k] = c
	}
	return out
}

var envRef = regexp.MustCompile(`^%ENV\{(\w+)\}$`)

// expandEnv resolves pyATS "%ENV{NAME}" references.
func expandEnv(v string) string {
	if m := envRef.FindStringSubmatch(v); m != nil {
		return os.Getenv(m[1])
	}
	return v
}

// FindTestbed returns the testbed path from PYATS_TESTBED_PATH or
// NETAGENT_TESTBED_PATH, or the first existing default location.
func FindTestbed() (string, error) {
	for _, env := range []string{"PYATS_TESTBED_PATH", "NETAGENT_TESTBED_PATH"} {
		if p := os.Getenv(env); p != "" {
			if _, err := os.Stat(p); err != nil {
				return "", fmt.Errorf("%s: %w", env, err)
			}
			return p, nil
		}
	}
	for _, p := range []string{"config/testbed.yaml", "testbed.yaml", "../testbed.yaml"} {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", errors.New("testbed file not found, set PYATS_TESTBED_PATH")
}
