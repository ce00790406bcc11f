package types_test

import (
	"errors"

	. "github.com/netagent/netagent/core/types"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sashabaranov/go-openai/jsonschema"
)

var _ = Describe("State", func() {
	var state *State

	BeforeEach(func() {
		state = NewState("check CPU on CSR1")
	})

	It("starts with the human message and no agent selected", func() {
		Expect(state.ID).ToNot(BeEmpty())
		Expect(state.Messages).To(HaveLen(1))
		Expect(state.Messages[0].Type).To(Equal(MessageHuman))
		Expect(state.CurrentAgent).To(BeEmpty())
		Expect(state.Done).To(BeFalse())
		Expect(state.LastHumanMessage()).To(Equal("check CPU on CSR1"))
	})

	It("hands control back to the supervisor after a response", func() {
		Expect(state.Route("ios_agent")).To(Succeed())
		Expect(state.CurrentAgent).To(Equal("ios_agent"))

		Expect(state.Respond("ios_agent", "CPU 5%")).To(Succeed())
		Expect(state.CurrentAgent).To(BeEmpty())
		Expect(state.AgentID).To(Equal("ios_agent"))
		Expect(state.AgentResponses).To(HaveKeyWithValue("ios_agent", "CPU 5%"))
	})

	It("refuses the terminal marker as a routing target", func() {
		Expect(state.Route(Terminal)).ToNot(Succeed())
		Expect(state.Route("")).ToNot(Succeed())
	})

	It("stops routing once the final output is set", func() {
		Expect(state.Finish("done")).To(Succeed())
		Expect(state.Done).To(BeTrue())
		Expect(state.Route("notify_agent")).To(MatchError(ErrStateDone))
		Expect(state.Respond("notify_agent", "x")).To(MatchError(ErrStateDone))
		Expect(state.Finish("again")).To(MatchError(ErrStateDone))
		Expect(state.FinalOutput).To(Equal("done"))
	})

	It("marks failures with an error final output", func() {
		Expect(state.Route("ios_agent")).To(Succeed())
		Expect(state.Fail(errors.New("ssh: handshake failed"))).To(Succeed())
		Expect(state.Done).To(BeTrue())
		Expect(state.CurrentAgent).To(BeEmpty())
		Expect(state.Err).To(Equal("ssh: handshake failed"))
		Expect(state.FinalOutput).To(Equal("Error: ssh: handshake failed"))
		Expect(state.Fail(errors.New("again"))).To(MatchError(ErrStateDone))
	})

	It("renders responses sorted by agent", func() {
		state.AgentResponses["notify_agent"] = "sent"
		state.AgentResponses["ios_agent"] = "ok"
		Expect(state.ResponsesString()).To(Equal("ios_agent: ok\nnotify_agent: sent"))
	})
})

var _ = Describe("Actions", func() {
	It("decodes params into structs", func() {
		params, err := ParseActionParams(`{"device_name":"CSR1","commands":["show clock"]}`)
		Expect(err).NotTo(HaveOccurred())

		var in struct {
			DeviceName string   `json:"device_name"`
			Commands   []string `json:"commands"`
		}
		Expect(params.Unmarshal(&in)).To(Succeed())
		Expect(in.DeviceName).To(Equal("CSR1"))
		Expect(in.Commands).To(ConsistOf("show clock"))
	})

	It("builds an object schema even without properties", func() {
		def := ActionDefinition{Name: "list_devices", Description: "List devices"}
		tool := def.Tool()
		Expect(tool.Function.Name).To(Equal("list_devices"))
		Expect(tool.Function.Parameters).To(HaveField("Type", jsonschema.Object))
	})

	It("accepts empty arguments", func() {
		for _, args := range []string{"", " null "} {
			params, err := ParseActionParams(args)
			Expect(err).NotTo(HaveOccurred())
			Expect(params).To(BeEmpty())
		}
		_, err := ParseActionParams("{not json")
		Expect(err).To(HaveOccurred())
	})
})
