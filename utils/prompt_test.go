package utils

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrompterAsksOnlyWhenEmpty(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("vacancies.csv\n  Аналитик \n"), &out)

	path, err := p.Ask("File name", "")
	require.NoError(t, err)
	assert.Equal(t, "vacancies.csv", path)

	kept, err := p.Ask("Ignored", "preset")
	require.NoError(t, err)
	assert.Equal(t, "preset", kept)

	name, err := p.Ask("Vacancy name", "")
	require.NoError(t, err)
	assert.Equal(t, "Аналитик", name)

	assert.Equal(t, "File name: Vacancy name: ", out.String())
}

func TestPrompterEOFWithoutNewline(t *testing.T) {
	p := NewPrompter(strings.NewReader("last"), &bytes.Buffer{})
	got, err := p.Ask("x", "")
	require.NoError(t, err)
	assert.Equal(t, "last", got)
}
