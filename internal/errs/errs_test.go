package errs

import (
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKinds(t *testing.T) {
	u := Usage("unknown keyword %q", "foo")
	assert.Equal(t, `unknown keyword "foo"`, u.Error())
	assert.True(t, IsUsage(u))
	assert.False(t, IsEnvironment(u))

	e := Environment("state file JSON is corrupted")
	assert.True(t, IsEnvironment(e))
	assert.False(t, IsUsage(e))

	_, ok := AsDomain(fmt.Errorf("plain"))
	assert.False(t, ok)
}

func TestWrapEnvironment(t *testing.T) {
	assert.NoError(t, WrapEnvironment(nil, "ignored"))

	err := WrapEnvironment(io.ErrUnexpectedEOF, "failed to add %s", "base")
	require.True(t, IsEnvironment(err))
	assert.Equal(t, "failed to add base: unexpected EOF", err.Error())
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	// domain errors keep their kind and message
	wrapped := WrapEnvironment(fmt.Errorf("outer: %w", Usage("cancelled")), "ignored")
	assert.True(t, IsUsage(wrapped))
	assert.Equal(t, "outer: cancelled", wrapped.Error())
}

func TestAsDomainThroughWrapping(t *testing.T) {
	inner := Environment("no /etc/lsb-release; this does not seem to be Linux")
	d, ok := AsDomain(fmt.Errorf("status: %w", inner))
	require.True(t, ok)
	assert.Equal(t, inner, d)
}
