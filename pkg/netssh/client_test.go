package netssh_test

import (
	"context"
	"time"

	"github.com/netagent/netagent/pkg/inventory"
	"github.com/netagent/netagent/pkg/netssh"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Client", func() {
	var (
		device *fakeDevice
		target netssh.Target
	)

	BeforeEach(func() {
		var err error
		device, err = startFakeDevice(map[string]string{
			"show processes cpu | i CPU utilization": "CPU utilization for five seconds: 2%/0%; one minute: 1%\n",
			"clear counters":                         "",
		})
		Expect(err).ToNot(HaveOccurred())
		DeferCleanup(device.close)

		target = netssh.Target{
			Host:     device.host(),
			Port:     device.port(),
			Username: "cisco",
			Password: "cisco",
			Timeout:  5 * time.Second,
		}
	})

	It("executes show commands", func() {
		c, err := netssh.Dial(context.Background(), target)
		Expect(err).ToNot(HaveOccurred())
		defer c.Close()

		out, err := c.Execute(context.Background(), "show processes cpu | i CPU utilization")
		Expect(err).ToNot(HaveOccurred())
		Expect(out).To(Equal("CPU utilization for five seconds: 2%/0%; one minute: 1%"))
	})

	It("reports commands without output", func() {
		c, err := netssh.Dial(context.Background(), target)
		Expect(err).ToNot(HaveOccurred())
		defer c.Close()

		out, err := c.Execute(context.Background(), "clear counters")
		Expect(err).ToNot(HaveOccurred())
		Expect(out).To(Equal(netssh.NoOutput))
	})

	It("pushes configuration through an interactive shell", func() {
		c, err := netssh.Dial(context.Background(), target)
		Expect(err).ToNot(HaveOccurred())
		defer c.Close()

		out, err := c.Configure(context.Background(), []string{"interface Loopback0", "description mgmt"})
		Expect(err).ToNot(HaveOccurred())
		Expect(out).To(ContainSubstring("description mgmt"))
		Expect(device.received()).To(Equal([]string{
			"terminal length 0",
			"configure terminal",
			"interface Loopback0",
			"description mgmt",
			"end",
			"exit",
		}))
	})

	It("rejects wrong credentials", func() {
		target.Password = "wrong"
		_, err := netssh.Dial(context.Background(), target)
		Expect(err).To(HaveOccurred())
	})

	It("checks a pinned host key", func() {
		target.KnownHostsKey = device.hostKey()
		c, err := netssh.Dial(context.Background(), target)
		Expect(err).ToNot(HaveOccurred())
		c.Close()

		other, err := startFakeDevice(nil)
		Expect(err).ToNot(HaveOccurred())
		defer other.close()
		target.KnownHostsKey = other.hostKey()
		_, err = netssh.Dial(context.Background(), target)
		Expect(err).To(HaveOccurred())
	})

	It("requires some credentials", func() {
		target.Password = ""
		_, err := netssh.Dial(context.Background(), target)
		Expect(err).To(MatchError(ContainSubstring("no password or private key")))
	})
})

type staticResolver map[string]inventory.Endpoint

func (s staticResolver) Device(name string) (inventory.Endpoint, error) {
	ep, ok := s[name]
	if !ok {
		return inventory.Endpoint{}, inventory.ErrDeviceNotFound
	}
	return ep, nil
}

var _ = Describe("Runner", func() {
	var (
		device *fakeDevice
		runner *netssh.Runner
	)

	BeforeEach(func() {
		var err error
		device, err = startFakeDevice(map[string]string{
			"show clock":   "10:00:00.000 UTC Mon Jun 2 2025",
			"show version": "Cisco IOS XE Software, Version 17.03.04a",
		})
		Expect(err).ToNot(HaveOccurred())
		DeferCleanup(device.close)

		runner = netssh.NewRunner(staticResolver{
			"CSR1": {Name: "CSR1", Protocol: "ssh", Host: device.host(), Port: device.port(), Username: "cisco", Password: "cisco"},
			"CSR9": {Name: "CSR9", Protocol: "telnet", Host: device.host(), Port: device.port()},
		}, 5*time.Second)
	})

	It("runs a single command", func() {
		out, err := runner.Execute(context.Background(), "CSR1", "show clock")
		Expect(err).ToNot(HaveOccurred())
		Expect(out).To(Equal("10:00:00.000 UTC Mon Jun 2 2025"))
	})

	It("labels the output of several commands", func() {
		out, err := runner.Execute(context.Background(), "CSR1", "show clock", "show version")
		Expect(err).ToNot(HaveOccurred())
		Expect(out).To(ContainSubstring("CSR1#show clock\n10:00:00.000"))
		Expect(out).To(ContainSubstring("CSR1#show version\nCisco IOS XE"))
	})

	It("fails for unknown devices and other protocols", func() {
		_, err := runner.Execute(context.Background(), "R1", "show clock")
		Expect(err).To(MatchError(inventory.ErrDeviceNotFound))

		_, err = runner.Execute(context.Background(), "CSR9", "show clock")
		Expect(err).To(MatchError(ContainSubstring("unsupported protocol")))
	})

	It("configures devices", func() {
		_, err := runner.Configure(context.Background(), "CSR1", []string{"hostname CSR1-lab"})
		Expect(err).ToNot(HaveOccurred())
		Expect(device.received()).To(ContainElement("hostname CSR1-lab"))
	})
})
