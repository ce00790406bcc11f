package agent

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	agentRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "netagent_agent_runs_total",
		Help: "Specialist agent runs by agent and outcome",
	}, []string{"agent", "outcome"})

	toolCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "netagent_tool_calls_total",
		Help: "Tool calls by tool and outcome",
	}, []string{"tool", "outcome"})
)
