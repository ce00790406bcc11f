package supervisor

type Option func(*Supervisor) error

// WithPrompt replaces the routing prompt. The template receives
// .UserMessage, .Responses and .Agents (each with .Name and .Description).
func WithPrompt(prompt string) Option {
	return func(s *Supervisor) error {
		if prompt == "" {
			return nil
		}
		t, err := templateBase("routing", prompt)
		if err != nil {
			return err
		}
		s.prompt = t
		return nil
	}
}

// WithRecursionLimit bounds the number of steps (supervisor decisions and
// agent runs) of a single request.
func WithRecursionLimit(limit int) Option {
	return func(s *Supervisor) error {
		if limit > 0 {
			s.recursionLimit = limit
		}
		return nil
	}
}

func WithTemperature(t float32) Option {
	return func(s *Supervisor) error {
		s.temperature = t
		return nil
	}
}

func WithObserver(o Observer) Option {
	return func(s *Supervisor) error {
		s.observer = o
		return nil
	}
}
