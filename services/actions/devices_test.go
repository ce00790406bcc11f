package actions_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/netagent/netagent/core/types"
	"github.com/netagent/netagent/pkg/inventory"
	"github.com/netagent/netagent/services/actions"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const testbedYAML = `
testbed:
  name: lab
  credentials:
    default:
      username: cisco
      password: supersecret
devices:
  CSR1:
    os: iosxe
    type: router
    connections:
      cli:
        protocol: ssh
        ip: 192.168.1.55
  CSR2:
    os: iosxe
    type: router
    connections:
      cli:
        protocol: ssh
        ip: 192.168.1.59
`

type staticInventory struct{ tb *inventory.Testbed }

func (s staticInventory) Testbed() *inventory.Testbed { return s.tb }

type fakeRunner struct {
	executed   map[string][]string
	configured map[string][]string
	outputs    map[string]string
	err        error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		executed:   map[string][]string{},
		configured: map[string][]string{},
		outputs:    map[string]string{},
	}
}

func (f *fakeRunner) Execute(_ context.Context, device string, commands ...string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.executed[device] = append(f.executed[device], commands...)
	out := []string{}
	for _, c := range commands {
		out = append(out, f.outputs[c])
	}
	return strings.Join(out, "\n"), nil
}

func (f *fakeRunner) Configure(_ context.Context, device string, lines []string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.configured[device] = append(f.configured[device], lines...)
	return "CSR1(config)#", nil
}

var _ = Describe("Device actions", func() {
	var (
		runner *fakeRunner
		inv    staticInventory
		ctx    context.Context
	)

	BeforeEach(func() {
		tb, err := inventory.Parse([]byte(testbedYAML))
		Expect(err).ToNot(HaveOccurred())
		inv = staticInventory{tb: tb}
		runner = newFakeRunner()
		ctx = context.Background()
	})

	It("lists device names as JSON", func() {
		res, err := actions.NewListDevices(inv, "").Run(ctx, types.ActionParams{})
		Expect(err).ToNot(HaveOccurred())
		var names []string
		Expect(json.Unmarshal([]byte(res.Result), &names)).To(Succeed())
		Expect(names).To(Equal([]string{"CSR1", "CSR2"}))
	})

	It("can be exposed under another name", func() {
		a := actions.NewListDevices(inv, "get_name_devices_tool")
		Expect(a.Definition().Name.String()).To(Equal("get_name_devices_tool"))
	})

	It("returns the inventory without passwords", func() {
		res, err := actions.NewGetDeviceInfo(inv).Run(ctx, types.ActionParams{})
		Expect(err).ToNot(HaveOccurred())
		Expect(res.Result).To(ContainSubstring("CSR1"))
		Expect(res.Result).To(ContainSubstring("192.168.1.59"))
		Expect(res.Result).ToNot(ContainSubstring("supersecret"))
	})

	DescribeTable("fixed checks",
		func(build func(actions.DeviceRunner) *actions.DeviceCheck, name, command string) {
			runner.outputs[command] = "output of " + command
			a := build(runner)
			Expect(a.Definition().Name.String()).To(Equal(name))
			Expect(a.Definition().Required).To(Equal([]string{"device_name"}))

			res, err := a.Run(ctx, types.ActionParams{"device_name": "CSR1"})
			Expect(err).ToNot(HaveOccurred())
			Expect(res.Result).To(Equal("output of " + command))
			Expect(runner.executed["CSR1"]).To(Equal([]string{command}))
		},
		Entry("cpu", actions.NewCPUChecking, "cpu_checking", actions.CommandCPU),
		Entry("interfaces", actions.NewInterfaceChecking, "interface_checking", actions.CommandInterface),
		Entry("crc", actions.NewCRCChecking, "crc_checking", actions.CommandCRC),
	)

	It("wraps runner failures", func() {
		runner.err = errors.New("device CSR9 not found in testbed")
		_, err := actions.NewCPUChecking(runner).Run(ctx, types.ActionParams{"device_name": "CSR9"})
		Expect(err).To(MatchError("error checking CPU: device CSR9 not found in testbed"))
	})

	It("requires a device name", func() {
		_, err := actions.NewCRCChecking(runner).Run(ctx, types.ActionParams{})
		Expect(err).To(MatchError("device_name is required"))
	})

	Context("custom show commands", func() {
		It("runs show commands", func() {
			runner.outputs["show version"] = "Cisco IOS XE"
			res, err := actions.NewCustomShowCommand(runner).Run(ctx, types.ActionParams{
				"device_name": "CSR2",
				"commands":    []string{"show version"},
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(res.Result).To(Equal("Cisco IOS XE"))
		})

		It("refuses anything else", func() {
			_, err := actions.NewCustomShowCommand(runner).Run(ctx, types.ActionParams{
				"device_name": "CSR2",
				"commands":    []string{"sh ip int brief", "reload"},
			})
			Expect(err).To(HaveOccurred())
			Expect(runner.executed).To(BeEmpty())
		})
	})

	Context("configure_device", func() {
		It("strips mode changes and applies the lines", func() {
			a := actions.NewConfigureDevice(runner, map[string]string{})
			_, err := a.Run(ctx, types.ActionParams{
				"device_name": "CSR1",
				"commands":    []string{"conf t", "interface Loopback0", " ip address 10.0.0.1 255.255.255.255", "end"},
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(runner.configured["CSR1"]).To(Equal([]string{"interface Loopback0", "ip address 10.0.0.1 255.255.255.255"}))
		})

		It("refuses destructive commands unless allowed", func() {
			params := types.ActionParams{"device_name": "CSR1", "commands": []string{"reload"}}
			_, err := actions.NewConfigureDevice(runner, map[string]string{}).Run(ctx, params)
			Expect(err).To(MatchError(ContainSubstring("refusing destructive command")))

			_, err = actions.NewConfigureDevice(runner, map[string]string{"allow_destructive": "true"}).Run(ctx, params)
			Expect(err).ToNot(HaveOccurred())
			Expect(runner.configured["CSR1"]).To(Equal([]string{"reload"}))
		})

		It("needs at least one line", func() {
			_, err := actions.NewConfigureDevice(runner, nil).Run(ctx, types.ActionParams{
				"device_name": "CSR1",
				"commands":    []string{"end"},
			})
			Expect(err).To(MatchError("no configuration lines given"))
		})
	})
})
