package tools

import "time"

// ToolConfig controls how the executor runs a batch of tool calls.
type ToolConfig struct {
	ExecutionTimeout time.Duration `json:"execution_timeout" yaml:"execution_timeout"`
	MaxParallelTools int           `json:"max_parallel_tools" yaml:"max_parallel_tools"`
	RetryConfig      RetryConfig   `json:"retry_config" yaml:"retry_config"`
}

// DefaultToolConfig returns a sensible default configuration
func DefaultToolConfig() ToolConfig {
	return ToolConfig{
		ExecutionTimeout: 20 * time.Second,
		MaxParallelTools: 1,
		RetryConfig: RetryConfig{
			MaxRetries:    0,
			BackoffBase:   500 * time.Millisecond,
			BackoffFactor: 2.0,
		},
	}
}

func (tc ToolConfig) WithExecutionTimeout(timeout time.Duration) ToolConfig {
	tc.ExecutionTimeout = timeout
	return tc
}

func (tc ToolConfig) WithMaxParallelTools(maxParallel int) ToolConfig {
	tc.MaxParallelTools = maxParallel
	return tc
}

func (tc ToolConfig) WithRetryConfig(cfg RetryConfig) ToolConfig {
	tc.RetryConfig = cfg
	return tc
}

// RetryConfig defines retry behavior for tool execution
type RetryConfig struct {
	MaxRetries    int           `json:"max_retries" yaml:"max_retries"`
	BackoffBase   time.Duration `json:"backoff_base" yaml:"backoff_base"`
	BackoffFactor float64       `json:"backoff_factor" yaml:"backoff_factor"`
}

func (rc RetryConfig) backoff(attempt int) time.Duration {
	d := float64(rc.BackoffBase)
	for i := 0; i < attempt; i++ {
		d *= rc.BackoffFactor
	}
	return time.Duration(d)
}
