package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoldenHelloProducer(t *testing.T) {
	s := &Scenario{
		Name:        "hello_producer",
		Description: "a producer's one-shot emission reaches the display pad",
		Source: `
program: {
	name: "hello"
	nodes: [
		{name: "greeting", kind: "producer", value: "hello"},
		{name: "display", kind: "pad"},
	]
	connections: [
		{from: "greeting", to: "display"},
	]
}
`,
		Ticks: []TickStep{
			{ExpectEffects: []ExpectedEffect{{Pad: "display", Payload: "hello"}}},
		},
	}

	result, err := RunWithGolden(t, s, nil)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}
