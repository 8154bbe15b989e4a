package persona

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validPersona = `
name: Busy Parent
goal: Book a kids class in under five minutes
traits: [impatient, mobile-first]
frustrations:
  - hidden pricing
journey:
  - navigate: https://example.test/classes
  - fill: {selector: "#search", value: "swimming"}
  - click: "text=Search"
  - expect: {selector: ".result-card", count: 3}
  - wait: 800
  - screenshot: results.png
`

func TestParse_ValidPersona(t *testing.T) {
	p, err := Parse([]byte(validPersona))
	require.NoError(t, err)

	assert.Equal(t, "Busy Parent", p.Name)
	assert.Equal(t, []string{"impatient", "mobile-first"}, p.Traits)
	require.Len(t, p.Journey, 6)

	assert.Equal(t, StepNavigate, p.Journey[0].Kind)
	assert.Equal(t, "https://example.test/classes", p.Journey[0].URL)

	assert.Equal(t, StepFill, p.Journey[1].Kind)
	assert.Equal(t, "#search", p.Journey[1].Selector)
	assert.Equal(t, "swimming", p.Journey[1].Value)

	assert.Equal(t, StepClick, p.Journey[2].Kind)
	assert.Equal(t, "text=Search", p.Journey[2].Selector)

	assert.Equal(t, StepExpect, p.Journey[3].Kind)
	assert.Equal(t, ".result-card", p.Journey[3].Selector)
	assert.Equal(t, 3, p.Journey[3].Count)

	assert.Equal(t, StepWait, p.Journey[4].Kind)
	assert.Equal(t, 800, p.Journey[4].Millis)

	assert.Equal(t, StepScreenshot, p.Journey[5].Kind)
	assert.Equal(t, "results.png", p.Journey[5].Name)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing name",
			yaml:    "journey:\n  - navigate: https://example.test\n",
			wantErr: "missing a name",
		},
		{
			name:    "no journey",
			yaml:    "name: Someone\n",
			wantErr: "no journey steps",
		},
		{
			name:    "unknown step",
			yaml:    "name: Someone\njourney:\n  - teleport: mars\n",
			wantErr: "unknown journey step",
		},
		{
			name:    "fill without selector",
			yaml:    "name: Someone\njourney:\n  - fill: {value: x}\n",
			wantErr: "fill needs a selector",
		},
		{
			name:    "screenshot with path separator",
			yaml:    "name: Someone\njourney:\n  - screenshot: ../../etc/passwd\n",
			wantErr: "plain filename",
		},
		{
			name:    "not yaml at all",
			yaml:    "{{{{",
			wantErr: "invalid persona YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDescribe(t *testing.T) {
	p, err := Parse([]byte(validPersona))
	require.NoError(t, err)

	desc := p.Describe()
	assert.Contains(t, desc, "Name: Busy Parent")
	assert.Contains(t, desc, "Goal: Book a kids class")
	assert.Contains(t, desc, "Traits: impatient, mobile-first")
	assert.Contains(t, desc, "Frustrations: hidden pricing")
}
