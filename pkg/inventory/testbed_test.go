package inventory_test

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/netagent/netagent/pkg/inventory"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const labTestbed = `
testbed:
  name: lab
  credentials:
    default:
      username: cisco
      password: cisco
devices:
  CSR2:
    os: iosxe
    type: router
    connections:
      cli:
        protocol: ssh
        ip: 192.168.1.59
  CSR1:
    os: iosxe
    type: router
    credentials:
      default:
        username: admin
        password: "%ENV{CSR1_PASSWORD}"
    connections:
      mgmt:
        protocol: ssh
        ip: 192.168.1.55
        port: 2222
`

var _ = Describe("Testbed", func() {
	var tb *inventory.Testbed

	BeforeEach(func() {
		var err error
		tb, err = inventory.Parse([]byte(labTestbed))
		Expect(err).ToNot(HaveOccurred())
	})

	It("lists devices sorted by name", func() {
		Expect(tb.DeviceNames()).To(Equal([]string{"CSR1", "CSR2"}))
	})

	It("falls back to testbed credentials", func() {
		ep, err := tb.Device("CSR2")
		Expect(err).ToNot(HaveOccurred())
		Expect(ep.Username).To(Equal("cisco"))
		Expect(ep.Password).To(Equal("cisco"))
		Expect(ep.Address()).To(Equal("192.168.1.59:22"))
		Expect(ep.Protocol).To(Equal("ssh"))
	})

	It("resolves device credentials and env references", func() {
		os.Setenv("CSR1_PASSWORD", "s3cret")
		DeferCleanup(os.Unsetenv, "CSR1_PASSWORD")

		ep, err := tb.Device("CSR1")
		Expect(err).ToNot(HaveOccurred())
		Expect(ep.Username).To(Equal("admin"))
		Expect(ep.Password).To(Equal("s3cret"))
		Expect(ep.Address()).To(Equal("192.168.1.55:2222"))
	})

	It("fails on unknown devices", func() {
		_, err := tb.Device("R9")
		Expect(err).To(MatchError(inventory.ErrDeviceNotFound))
	})

	It("keeps the file content", func() {
		Expect(tb.YAML()).To(ContainSubstring("192.168.1.55"))
	})

	It("masks passwords", func() {
		out, err := tb.RedactedYAML()
		Expect(err).ToNot(HaveOccurred())
		Expect(out).To(ContainSubstring("192.168.1.59"))
		Expect(out).To(ContainSubstring("username: cisco"))
		Expect(out).ToNot(ContainSubstring("password: cisco"))
		Expect(out).To(ContainSubstring("********"))
	})

	It("rejects a testbed without devices", func() {
		_, err := inventory.Parse([]byte("testbed:\n  name: empty\n"))
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Store", func() {
	var path string

	BeforeEach(func() {
		path = filepath.Join(GinkgoT().TempDir(), "testbed.yaml")
		Expect(os.WriteFile(path, []byte(labTestbed), 0o644)).To(Succeed())
	})

	It("reloads the testbed when the file changes", func() {
		store, err := inventory.NewStore(path)
		Expect(err).ToNot(HaveOccurred())

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		Expect(store.Watch(ctx)).To(Succeed())

		updated := labTestbed + `
  CSR3:
    os: iosxe
    connections:
      cli:
        ip: 192.168.1.50
`
		Expect(os.WriteFile(path, []byte(updated), 0o644)).To(Succeed())
		Eventually(func() []string {
			return store.Testbed().DeviceNames()
		}, 5*time.Second, 50*time.Millisecond).Should(ContainElement("CSR3"))
	})

	It("keeps the previous testbed when a reload fails", func() {
		store, err := inventory.NewStore(path)
		Expect(err).ToNot(HaveOccurred())

		Expect(os.WriteFile(path, []byte("devices: [oops"), 0o644)).To(Succeed())
		Expect(store.Reload()).ToNot(Succeed())
		Expect(store.Testbed().DeviceNames()).To(HaveLen(2))
	})

	It("finds the testbed from the environment", func() {
		os.Setenv("PYATS_TESTBED_PATH", path)
		DeferCleanup(os.Unsetenv, "PYATS_TESTBED_PATH")

		found, err := inventory.FindTestbed()
		Expect(err).ToNot(HaveOccurred())
		Expect(found).To(Equal(path))
	})
})
