package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/netagent/netagent/api"
	"github.com/netagent/netagent/core/scheduler"
	"github.com/netagent/netagent/pkg/client"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type echoAsker struct {
	mu     sync.Mutex
	inputs []string
	err    error
}

func (e *echoAsker) Ask(_ context.Context, input string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inputs = append(e.inputs, input)
	if e.err != nil {
		return "", e.err
	}
	return "done: " + input, nil
}

var _ = Describe("Client", func() {
	var (
		asker  *echoAsker
		server *httptest.Server
		c      *client.Client
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		asker = &echoAsker{}

		store, err := scheduler.NewJSONStore(filepath.Join(GinkgoT().TempDir(), "tasks.json"))
		Expect(err).NotTo(HaveOccurred())
		sched := scheduler.NewScheduler(store, asker, time.Hour)

		app := api.NewApp(api.WithAsker(asker), api.WithScheduler(sched), api.WithApiKeys("k"))
		server = httptest.NewServer(adaptor.FiberApp(app.App))
		DeferCleanup(server.Close)

		c = client.NewClient(server.URL+"/", "k", 5*time.Second)
	})

	It("asks the supervisor", func() {
		out, err := c.Ask(ctx, "list devices")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("done: list devices"))
	})

	It("returns supervisor failures as errors", func() {
		asker.err = errors.New("recursion limit of 10 reached")
		_, err := c.Ask(ctx, "loop")
		Expect(err).To(MatchError("recursion limit of 10 reached"))
	})

	It("posts alerts", func() {
		Expect(c.Alert(ctx, "Link down", "Gi1 on CSR1", map[string]any{"severity": "major"})).To(Succeed())
		Expect(asker.inputs).To(Equal([]string{"Alert: Link down\nGi1 on CSR1"}))
	})

	It("surfaces API errors with their status", func() {
		c.APIKey = "wrong"
		_, err := c.Ask(ctx, "hi")
		var apiErr *client.APIError
		Expect(errors.As(err, &apiErr)).To(BeTrue())
		Expect(apiErr.StatusCode).To(Equal(http.StatusUnauthorized))
		Expect(c.Healthy(ctx)).To(BeTrue())
	})

	It("manages tasks", func() {
		task, err := c.CreateTask(ctx, client.TaskRequest{
			Name:          "nightly",
			Prompt:        "check CRC errors on all devices",
			ScheduleType:  scheduler.ScheduleTypeCron,
			ScheduleValue: "0 0 2 * * *",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(task.ID).NotTo(BeEmpty())

		tasks, err := c.ListTasks(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(tasks).To(HaveLen(1))

		Expect(c.PauseTask(ctx, task.ID)).To(Succeed())
		got, err := c.GetTask(ctx, task.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Status).To(Equal(scheduler.TaskStatusPaused))
		Expect(c.ResumeTask(ctx, task.ID)).To(Succeed())

		var notStarted *client.APIError
		Expect(errors.As(c.TriggerTask(ctx, task.ID), &notStarted)).To(BeTrue())
		Expect(notStarted.StatusCode).To(Equal(http.StatusServiceUnavailable))

		runs, err := c.TaskRuns(ctx, task.ID, 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(runs).To(BeEmpty())

		Expect(c.DeleteTask(ctx, task.ID)).To(Succeed())
		_, err = c.GetTask(ctx, task.ID)
		var apiErr *client.APIError
		Expect(errors.As(err, &apiErr)).To(BeTrue())
		Expect(apiErr.StatusCode).To(Equal(http.StatusNotFound))
		Expect(apiErr.Message).To(ContainSubstring("task not found"))
	})
})
