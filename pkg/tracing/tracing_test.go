package tracing_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuconvo/auth/pkg/tracing"
)

func TestSetup_Disabled(t *testing.T) {
	t.Parallel()

	shutdown, err := tracing.Setup(context.Background(), tracing.Config{})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
