package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ashton-krac/carbonchat/llm"
)

func TestNewGeneratorRequiresAPIKey(t *testing.T) {
	assert := assert.New(t)

	_, err := NewGenerator("", llm.Config{Model: "gpt-4o"})
	assert.ErrorIs(err, ErrMissingAPIKey)
}

func TestNewGenerator(t *testing.T) {
	assert := assert.New(t)

	gen, err := NewGenerator("sk-test", llm.Config{
		Model:       "gpt-4o",
		Temperature: 0.1,
	})

	assert.NoError(err)
	assert.NotNil(gen)
}
