//go:build unix

package scheduler_test

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazu-source/kazu-source.github.io-sub002/internal/model"
)

// assertProcessGone checks that the PID recorded in pidFile no longer exists.
func assertProcessGone(t *testing.T, pidFile string) {
	t.Helper()
	data, err := os.ReadFile(pidFile)
	require.NoError(t, err, "worker never recorded its pid")
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	require.NoError(t, err)

	err = syscall.Kill(pid, 0)
	assert.True(t, errors.Is(err, syscall.ESRCH), "worker pid %d still exists after timeout (kill err = %v)", pid, err)
}

func TestProcessRunnerKilledBySignal(t *testing.T) {
	out, err := testRunner(t).Run(context.Background(), item(t, "self_kill"), 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, model.StatusNoSignal, out.Status)
	assert.Nil(t, out.ExitCode)
	assert.Equal(t, syscall.SIGKILL.String(), out.Signal)
}
