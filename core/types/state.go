package types

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Terminal is the routing target that ends a request.
const Terminal = "complete"

// NoActionsOutput is the final output when the supervisor finishes without
// any agent having responded.
const NoActionsOutput = "No actions taken for message"

var ErrStateDone = errors.New("state already has a final output")

type MessageType string

const (
	MessageHuman  MessageType = "human"
	MessageSystem MessageType = "system"
	MessageAI     MessageType = "ai"
)

type Message struct {
	Type    MessageType `json:"type"`
	Content string      `json:"content"`
	AgentID string      `json:"agent_id,omitempty"`
}

// State is the record handed from step to step while a request is routed
// between the supervisor and the specialists. It is owned by a single
// goroutine for its whole life and is dropped once the response is sent.
type State struct {
	ID             string            `json:"id"`
	Task           string            `json:"task"`
	AgentResponses map[string]string `json:"agent_responses"`
	CurrentAgent   string            `json:"current_agent,omitempty"`
	AgentID        string            `json:"agent_id"`
	Messages       []Message         `json:"messages"`
	FinalOutput    string            `json:"final_output,omitempty"`
	Done           bool              `json:"done"`
	Err            string            `json:"error,omitempty"`
}

func NewState(task string) *State {
	return &State{
		ID:             uuid.New().String(),
		Task:           task,
		AgentResponses: map[string]string{},
		AgentID:        "supervisor",
		Messages: []Message{
			{Type: MessageHuman, Content: task},
		},
	}
}

func (s *State) AddMessage(m Message) {
	s.Messages = append(s.Messages, m)
}

// Route sets the agent to run next.
func (s *State) Route(agent string) error {
	if s.Done {
		return ErrStateDone
	}
	if agent == "" || agent == Terminal {
		return fmt.Errorf("invalid routing target %q", agent)
	}
	s.CurrentAgent = agent
	return nil
}

// Respond records the response of an agent and hands control back to the
// supervisor.
func (s *State) Respond(agent, response string) error {
	if s.Done {
		return ErrStateDone
	}
	s.AgentResponses[agent] = response
	s.AgentID = agent
	s.CurrentAgent = ""
	return nil
}

// Finish sets the final output. No routing happens afterwards.
func (s *State) Finish(output string) error {
	if s.Done {
		return ErrStateDone
	}
	s.FinalOutput = output
	s.CurrentAgent = ""
	s.Done = true
	return nil
}

// Fail terminates the state with an error marker as final output.
func (s *State) Fail(err error) error {
	if s.Done {
		return ErrStateDone
	}
	s.Err = err.Error()
	s.FinalOutput = "Error: " + s.Err
	s.CurrentAgent = ""
	s.Done = true
	return nil
}

// ResponsesString renders the agent responses as "agent: response" lines,
// sorted by agent name so prompts are stable.
func (s *State) ResponsesString() string {
	names := make([]string, 0, len(s.AgentResponses))
	for name := range s.AgentResponses {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("%s: %s", name, s.AgentResponses[name]))
	}
	return strings.Join(lines, "\n")
}

// LastHumanMessage returns the content of the most recent human message,
// falling back to the task.
func (s *State) LastHumanMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Type == MessageHuman {
			return s.Messages[i].Content
		}
	}
	return s.Task
}
