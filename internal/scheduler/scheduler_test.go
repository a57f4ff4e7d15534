package scheduler

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJob struct {
	name string
	runs int
	err  error
}

func (j *stubJob) Run() error {
	j.runs++
	return j.err
}

func (j *stubJob) Name() string { return j.name }

func TestAddJobValidSchedule(t *testing.T) {
	s := New(zerolog.Nop())

	err := s.AddJob("0 0 2 * * *", &stubJob{name: "nightly"})
	require.NoError(t, err)
}

func TestAddJobInvalidSchedule(t *testing.T) {
	s := New(zerolog.Nop())

	err := s.AddJob("not a schedule", &stubJob{name: "broken"})
	require.Error(t, err)
}

func TestRunNow(t *testing.T) {
	s := New(zerolog.Nop())
	job := &stubJob{name: "manual"}

	require.NoError(t, s.RunNow(job))
	assert.Equal(t, 1, job.runs)
}

func TestRunNowPropagatesError(t *testing.T) {
	s := New(zerolog.Nop())
	job := &stubJob{name: "failing", err: errors.New("boom")}

	err := s.RunNow(job)
	require.Error(t, err)
	assert.Equal(t, 1, job.runs)
}

func TestStartStop(t *testing.T) {
	s := New(zerolog.Nop())
	require.NoError(t, s.AddJob("@every 1h", &stubJob{name: "hourly"}))

	s.Start()
	s.Stop()
}
