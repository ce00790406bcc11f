package supervisor

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"text/template"
	"time"

	"github.com/mudler/xlog"
	"github.com/netagent/netagent/core/types"
	"github.com/netagent/netagent/pkg/llm"
	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

const DefaultRecursionLimit = 25

var (
	ErrUnknownAgent    = errors.New("unknown agent")
	ErrRecursionLimit  = errors.New("recursion limit")
	ErrNoAgents        = errors.New("a supervisor needs at least one agent")
	ErrInvalidDecision = errors.New("invalid routing decision")
)

// Worker is a specialist the supervisor can hand a task to.
type Worker interface {
	Name() string
	Description() string
	Run(ctx context.Context, task string, responses map[string]string) (string, error)
}

// Decision is the structured answer of the routing model.
type Decision struct {
	Next      string `json:"next"`
	Reasoning string `json:"reasoning,omitempty"`
}

type Supervisor struct {
	client         llm.LLMClient
	model          string
	agents         map[string]Worker
	order          []string
	prompt         *template.Template
	recursionLimit int
	temperature    float32
	observer       Observer
}

// Observer is told about every message added to a request state.
type Observer func(state *types.State, m types.Message)

func New(client llm.LLMClient, model string, workers []Worker, opts ...Option) (*Supervisor, error) {
	if client == nil {
		return nil, errors.New("an LLM client is required")
	}
	if len(workers) == 0 {
		return nil, ErrNoAgents
	}

	prompt, err := templateBase("routing", DefaultPrompt)
	if err != nil {
		return nil, err
	}

	s := &Supervisor{
		client:         client,
		model:          model,
		agents:         map[string]Worker{},
		prompt:         prompt,
		recursionLimit: DefaultRecursionLimit,
		temperature:    0.5,
	}

	for _, w := range workers {
		name := w.Name()
		if name == "" || name == types.Terminal {
			return nil, fmt.Errorf("invalid agent name %q", name)
		}
		if _, exists := s.agents[name]; exists {
			return nil, fmt.Errorf("duplicate agent name %q", name)
		}
		s.agents[name] = w
		s.order = append(s.order, name)
	}

	for _, o := range opts {
		if err := o(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Agents returns the team in registration order.
func (s *Supervisor) Agents() []Worker {
	workers := make([]Worker, 0, len(s.order))
	for _, name := range s.order {
		workers = append(workers, s.agents[name])
	}
	return workers
}

func (s *Supervisor) RecursionLimit() int {
	return s.recursionLimit
}

func (s *Supervisor) schema() jsonschema.Definition {
	targets := append(slices.Clone(s.order), types.Terminal)
	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"next": {
				Type:        jsonschema.String,
				Enum:        targets,
				Description: "The agent that acts next, or complete to end the request",
			},
			"reasoning": {
				Type:        jsonschema.String,
				Description: "One sentence explaining the choice",
			},
		},
		Required: []string{"next"},
	}
}

func responsesOrNone(state *types.State) string {
	if r := state.ResponsesString(); r != "" {
		return r
	}
	return "None"
}

// Decide asks the model for the next routing target.
func (s *Supervisor) Decide(ctx context.Context, state *types.State) (Decision, error) {
	agents := make([]agentInfo, 0, len(s.order))
	for _, w := range s.Agents() {
		agents = append(agents, agentInfo{Name: w.Name(), Description: w.Description()})
	}

	prompt, err := render(s.prompt, promptData{
		UserMessage: state.LastHumanMessage(),
		Responses:   responsesOrNone(state),
		Agents:      agents,
	})
	if err != nil {
		return Decision{}, fmt.Errorf("rendering routing prompt: %w", err)
	}

	var d Decision
	err = llm.GenerateTypedJSON(ctx, s.client, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	}, s.model, s.schema(), &d, llm.JSONOptions{
		ToolName:    "route",
		Description: "Choose the next agent or complete",
		Temperature: s.temperature,
	})
	if err != nil {
		return Decision{}, err
	}
	if d.Next == "" {
		return Decision{}, fmt.Errorf("%w: empty target", ErrInvalidDecision)
	}
	return d, nil
}

// Step runs one supervisor decision and applies it to the state. Model and
// transport failures end the request with an error final output and are
// not returned.
func (s *Supervisor) Step(ctx context.Context, state *types.State) error {
	if state.Done {
		return types.ErrStateDone
	}

	processing := fmt.Sprintf("Processing user message: %s, responses: %s", state.LastHumanMessage(), responsesOrNone(state))
	xlog.Info("Supervisor processing", "request", state.ID, "responses", len(state.AgentResponses))

	d, err := s.Decide(ctx, state)
	if err != nil {
		xlog.Error("Supervisor error", "request", state.ID, "error", err.Error())
		routingDecisions.WithLabelValues("error").Inc()
		s.record(state, types.Message{
			Type:    types.MessageSystem,
			Content: fmt.Sprintf("Supervisor failed: %s", err.Error()),
			AgentID: "supervisor",
		})
		state.AgentID = "supervisor"
		return state.Fail(err)
	}

	next := d.Next
	if next != types.Terminal {
		if _, ok := s.agents[next]; !ok {
			xlog.Warn("Supervisor chose an unknown agent, completing", "request", state.ID, "target", next)
			next = types.Terminal
		}
	}
	routingDecisions.WithLabelValues(next).Inc()
	state.AgentID = "supervisor"

	if next == types.Terminal {
		output := state.ResponsesString()
		if output == "" {
			output = types.NoActionsOutput
		}
		s.record(state, types.Message{
			Type:    types.MessageSystem,
			Content: processing + " - Message processing complete.",
			AgentID: "supervisor",
		})
		xlog.Info("Supervisor ending workflow", "request", state.ID, "reasoning", d.Reasoning)
		return state.Finish(output)
	}

	s.record(state, types.Message{
		Type:    types.MessageSystem,
		Content: fmt.Sprintf("%s - Delegating to %s.", processing, next),
		AgentID: "supervisor",
	})
	xlog.Info("Supervisor delegating", "request", state.ID, "agent", next, "reasoning", d.Reasoning)
	return state.Route(next)
}

func (s *Supervisor) record(state *types.State, m types.Message) {
	state.AddMessage(m)
	if s.observer != nil {
		s.observer(state, m)
	}
}

// runAgent executes the agent selected by the last step. A failing agent
// ends the request.
func (s *Supervisor) runAgent(ctx context.Context, state *types.State) error {
	name := state.CurrentAgent
	w, ok := s.agents[name]
	if !ok {
		return state.Fail(fmt.Errorf("%w: %s", ErrUnknownAgent, name))
	}

	task := state.LastHumanMessage()
	xlog.Info("Agent processing message", "request", state.ID, "agent", name)

	responses := make(map[string]string, len(state.AgentResponses))
	for k, v := range state.AgentResponses {
		responses[k] = v
	}

	result, err := w.Run(ctx, task, responses)
	if err != nil {
		xlog.Error("Agent failed", "request", state.ID, "agent", name, "error", err.Error())
		if rerr := state.Respond(name, "Error: "+err.Error()); rerr != nil {
			return rerr
		}
		s.record(state, types.Message{
			Type:    types.MessageSystem,
			Content: fmt.Sprintf("%s failed: %s", name, err.Error()),
			AgentID: name,
		})
		return state.Fail(err)
	}

	xlog.Info("Agent result", "request", state.ID, "agent", name, "result", result)
	if err := state.Respond(name, result); err != nil {
		return err
	}
	s.record(state, types.Message{Type: types.MessageAI, Content: result, AgentID: name})
	s.record(state, types.Message{
		Type:    types.MessageSystem,
		Content: fmt.Sprintf("%s processed message: %s, result: %s", name, task, result),
		AgentID: name,
	})
	return nil
}

// Invoke alternates supervisor steps and agent runs until the state is done
// or the recursion limit is exceeded.
func (s *Supervisor) Invoke(ctx context.Context, state *types.State) error {
	for steps := 0; !state.Done; steps++ {
		if steps >= s.recursionLimit {
			xlog.Warn("Recursion limit reached", "request", state.ID, "limit", s.recursionLimit)
			return state.Fail(fmt.Errorf("%w of %d reached", ErrRecursionLimit, s.recursionLimit))
		}
		if err := ctx.Err(); err != nil {
			return state.Fail(err)
		}

		var err error
		if state.CurrentAgent == "" {
			err = s.Step(ctx, state)
		} else {
			err = s.runAgent(ctx, state)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Run builds a fresh state for the input and invokes the team on it.
func (s *Supervisor) Run(ctx context.Context, input string) (*types.State, error) {
	start := time.Now()
	state := types.NewState(input)
	if err := s.Invoke(ctx, state); err != nil {
		return state, err
	}

	outcome := "success"
	if state.Err != "" {
		outcome = "error"
	}
	requestDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	return state, nil
}

// Ask returns the final output for the input. Requests that ended with an
// error marker return that error.
func (s *Supervisor) Ask(ctx context.Context, input string) (string, error) {
	state, err := s.Run(ctx, input)
	if err != nil {
		return "", err
	}
	if state.Err != "" {
		return "", errors.New(state.Err)
	}
	return state.FinalOutput, nil
}
