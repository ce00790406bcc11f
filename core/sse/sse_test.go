package sse

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/netagent/netagent/core/types"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Manager", func() {
	It("broadcasts to registered clients", func() {
		m := NewManager().(*broadcastManager)
		a, b := NewClient("a"), NewClient("b")
		m.subscribe(a)
		m.subscribe(b)
		Expect(m.Clients()).To(ConsistOf("a", "b"))

		m.Send(NewMessage("hello").WithEvent("greeting"))
		Expect(a.Chan()).To(Receive(WithTransform(Envelope.String, Equal("event: greeting\ndata: hello\n\n"))))
		Expect(b.Chan()).To(Receive())

		m.unregister("b")
		Expect(m.Clients()).To(ConsistOf("a"))
	})

	It("delivers messages in send order", func() {
		m := NewManager().(*broadcastManager)
		cl := NewClient("ordered")
		m.subscribe(cl)

		done := make(chan struct{})
		go func() {
			defer close(done)
			for i := 0; i < 40; i++ {
				m.Send(NewMessage(fmt.Sprint(i)))
			}
		}()
		Eventually(done).Should(BeClosed())

		for i := 0; i < 40; i++ {
			var got Envelope
			Expect(cl.Chan()).To(Receive(&got))
			Expect(got.String()).To(Equal(fmt.Sprintf("data: %d\n\n", i)))
		}
	})

	It("replays the last messages to new clients", func() {
		m := NewManager().(*broadcastManager)
		for i := 0; i < 12; i++ {
			m.Send(NewMessage(strings.Repeat("x", i+1)))
		}

		late := NewClient("late")
		m.subscribe(late)
		Expect(late.Chan()).To(HaveLen(10))
		first := <-late.Chan()
		Expect(first.String()).To(Equal("data: xxx\n\n"))

		m.Send(NewMessage("live"))
		Expect(late.Chan()).To(HaveLen(10))
		Expect(m.Clients()).To(ContainElement("late"))
	})

	It("encodes state messages", func() {
		state := types.NewState("check CSR1")
		env := NewStateMessage(state, types.Message{Type: types.MessageSystem, AgentID: "supervisor", Content: "Delegating to ios_agent."})

		raw := env.String()
		Expect(raw).To(HavePrefix("event: message\ndata: "))

		var ev StateEvent
		Expect(json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(raw, "event: message\ndata: "))), &ev)).To(Succeed())
		Expect(ev.RequestID).To(Equal(state.ID))
		Expect(ev.AgentID).To(Equal("supervisor"))
		Expect(ev.Type).To(Equal(types.MessageSystem))
		Expect(ev.Content).To(Equal("Delegating to ios_agent."))
	})
})
